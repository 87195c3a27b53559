package resolver

// Collaborators bundles every external-collaborator cache and table
// the control channel can inspect or mutate. One Collaborators value
// is shared by the whole daemon; the fast-reload pipeline builds
// fresh Trees and swaps their roots in, it does not replace this
// struct itself.
type Collaborators struct {
	RRsets   *RRsetCache
	Messages *MessageCache
	Infra    *InfraCache
	Keys     *KeyCache
	Mesh     *Mesh
	Anchors  *TrustAnchors
	RPZ      *RPZZones

	Views    *Tree[ViewConfig]
	Forwards *Tree[ForwardZone]
	Stubs    *Tree[StubZone]
	Locals   *Tree[LocalZone]

	Hints Hints
}

// Config bounds the cache capacities used to build a set of default
// collaborators; zero values fall back to sane defaults.
type Config struct {
	RRsetCapacity   int
	MessageCapacity int
	InfraCapacity   int
	KeyCapacity     int
	RPZZones        []string
}

const (
	defaultRRsetCapacity   = 100000
	defaultMessageCapacity = 50000
	defaultInfraCapacity   = 10000
	defaultKeyCapacity     = 10000
)

// NewCollaborators builds a full set of caches and tables ready for
// the daemon to serve control-channel requests against.
func NewCollaborators(cfg Config) *Collaborators {
	rrsetCap := cfg.RRsetCapacity
	if rrsetCap <= 0 {
		rrsetCap = defaultRRsetCapacity
	}
	msgCap := cfg.MessageCapacity
	if msgCap <= 0 {
		msgCap = defaultMessageCapacity
	}
	infraCap := cfg.InfraCapacity
	if infraCap <= 0 {
		infraCap = defaultInfraCapacity
	}
	keyCap := cfg.KeyCapacity
	if keyCap <= 0 {
		keyCap = defaultKeyCapacity
	}

	return &Collaborators{
		RRsets:   NewRRsetCache(rrsetCap),
		Messages: NewMessageCache(msgCap),
		Infra:    NewInfraCache(infraCap),
		Keys:     NewKeyCache(keyCap),
		Mesh:     NewMesh(),
		Anchors:  NewTrustAnchors(),
		RPZ:      NewRPZZones(cfg.RPZZones),
		Views:    NewTree[ViewConfig](),
		Forwards: NewTree[ForwardZone](),
		Stubs:    NewTree[StubZone](),
		Locals:   NewTree[LocalZone](),
	}
}

// FlushAll lowers the TTL of every entry in every cache, the
// all-caches flush control command's effect.
func (c *Collaborators) FlushAll() {
	c.RRsets.FlushAll()
	c.Messages.FlushAll()
	c.Infra.FlushAll()
	c.Keys.FlushAll()
}
