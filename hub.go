package main

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// hub owns every channel, its message log and the live connections. One
// lock serializes channel mutations and appends; fan-out happens while it is
// held so subscribers see a channel's messages in log order.
type hub struct {
	mu       sync.RWMutex
	channels channels
	order    []string // slugs in creation order

	conns *connections
	gate  *gate
	beat  *heartbeat
	m     *metrics
	log   *zap.Logger

	endpoint   string
	autoCreate bool
	readLimit  int64
	sendBuffer int
	now        func() time.Time
}

func newHub(cfg Config, log *zap.Logger, m *metrics) (*hub, error) {
	g, err := newGate(cfg)
	if err != nil {
		return nil, err
	}
	h := &hub{
		channels:   make(channels),
		conns:      newConnections(log, m),
		gate:       g,
		beat:       newHeartbeat(pingPeriod),
		m:          m,
		log:        log,
		endpoint:   cfg.Endpoint,
		autoCreate: cfg.AutoCreate,
		readLimit:  cfg.ReadLimit,
		sendBuffer: cfg.SendBuffer,
		now:        time.Now,
	}
	for _, spec := range parseSeeds(cfg.SeedChannels) {
		if _, err := h.create(spec); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// close disconnects every websocket and stops the keepalive ticker.
func (h *hub) close() {
	h.conns.closeAll()
	h.beat.stop()
}

func (h *hub) create(spec channelSpec) (Channel, error) {
	if err := validateStruct(spec); err != nil {
		return Channel{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channels[spec.Slug]; ok {
		return Channel{}, newError(Conflict, "Channel with this slug already exists")
	}
	return h.addLocked(spec).info, nil
}

func (h *hub) get(slug string) (Channel, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.channels[slug]
	if !ok {
		return Channel{}, errChannelNotFound
	}
	return c.info, nil
}

// getOrCreate returns the channel for slug, provisioning it with defaults
// when it does not exist yet and auto-creation is on.
func (h *hub) getOrCreate(slug string) (Channel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.getOrCreateLocked(slug)
	if err != nil {
		return Channel{}, err
	}
	return c.info, nil
}

func (h *hub) getOrCreateLocked(slug string) (*channel, error) {
	if c, ok := h.channels[slug]; ok {
		return c, nil
	}
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	if !h.autoCreate {
		return nil, errChannelNotFound
	}
	h.log.Debug("auto-provisioning channel", zap.String("channel", slug))
	return h.addLocked(channelSpec{Name: slug, Slug: slug}), nil
}

func (h *hub) addLocked(spec channelSpec) *channel {
	c := newChannel(spec, h.now())
	h.channels[spec.Slug] = c
	h.order = append(h.order, spec.Slug)
	h.m.incr("channels", 1)
	return c
}

func (h *hub) update(slug string, p channelPatch) (Channel, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return Channel{}, newError(InvalidInput, "name must not be empty")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.channels[slug]
	if !ok {
		return Channel{}, errChannelNotFound
	}
	c.apply(p, h.now())
	return c.info, nil
}

// delete drops the channel and its log, and unsubscribes every connection
// from the slug. A later publish to the slug starts from an empty log.
func (h *hub) delete(slug string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channels[slug]; !ok {
		return errChannelNotFound
	}
	delete(h.channels, slug)
	h.order = lo.Without(h.order, slug)
	h.m.decr("channels", 1)
	n := h.conns.dropChannel(slug, encodeFrame(frame{Type: frameUnsubscribed, Channel: slug}))
	h.log.Info("channel deleted", zap.String("channel", slug), zap.Int("unsubscribed", n))
	return nil
}

func (h *hub) list(p pageRequest) ([]Channel, pagination) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	all := lo.Map(h.order, func(slug string, _ int) Channel {
		return h.channels[slug].info
	})
	return paginate(all, p)
}

// subscribe provisions the channel if needed and adds it to the
// connection's subscriptions.
func (h *hub) subscribe(conn *connection, slug string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.getOrCreateLocked(slug); err != nil {
		return err
	}
	if !h.conns.subscribe(conn, slug) {
		return newError(InvalidInput, "connection is closed")
	}
	return nil
}

// parseSeeds reads "slug[:Name],..." into create requests.
func parseSeeds(s string) []channelSpec {
	var specs []channelSpec
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		slug, name, ok := strings.Cut(item, ":")
		if !ok {
			name = slug
		}
		specs = append(specs, channelSpec{Name: strings.TrimSpace(name), Slug: strings.TrimSpace(slug)})
	}
	return specs
}

func newID() string {
	return uuid.NewString()
}

// shortID returns prefix followed by n hex characters of a random uuid.
func shortID(prefix string, n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + hex[:n]
}
