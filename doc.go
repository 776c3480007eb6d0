// Pushhub is an in-process message broker: messages are published over HTTP,
// kept per channel for the life of the process, and pushed to websocket
// subscribers as they arrive.
//
//	pushhub -addr=:3001
//
// Every API call carries an API key as a bearer credential. Keys starting
// with pub_ may read (list channels, read history, open websockets); sec_
// and mgmt_ keys may also write (manage channels, publish).
//
// Publish by POSTing JSON to a channel. Unknown channels are created on the
// spot unless -autocreate=false.
//
//	curl localhost:3001/api/v1/channels/chat/messages \
//	    -H 'Authorization: Bearer sec_key' \
//	    -d '{"clientId":"me","content":{"text":"Hello"}}'
//
// Read history newest first, 50 per page by default, 100 at most.
//
//	curl 'localhost:3001/api/v1/channels/chat/messages?page=2' \
//	    -H 'Authorization: Bearer pub_key'
//
// Subscribe by trading a publish key for a connection token, opening a
// websocket with it and sending subscribe frames.
//
//	curl localhost:3001/api/v1/auth/token -d '{"publishKey":"pub_key"}'
//	ws://localhost:3001/ws?token=...
//	{"type":"subscribe","channel":"chat"}
//
// A subscriber that cannot keep up is disconnected rather than allowed to
// hold back delivery to the others. Nothing survives a restart.
package main
