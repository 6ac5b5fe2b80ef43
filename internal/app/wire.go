package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/Aesylwinn/tox-forward/internal/crypto"
	"github.com/Aesylwinn/tox-forward/internal/domain"
	"github.com/Aesylwinn/tox-forward/internal/hub"
	"github.com/Aesylwinn/tox-forward/internal/metrics"
	"github.com/Aesylwinn/tox-forward/internal/relay"
	"github.com/Aesylwinn/tox-forward/internal/store"
	"github.com/Aesylwinn/tox-forward/internal/transport/hubnet"
)

// ErrNoIdentity is returned by NewWire when the data dir has not been
// initialised.
var ErrNoIdentity = errors.New("no identity; run init first")

// Wire bundles the stores, transport and engine for the CLI.
type Wire struct {
	Config    Config
	Self      domain.PeerKey
	Identity  domain.IdentityStore
	Transport *hubnet.Transport
	Engine    *relay.Engine
	Registry  *prometheus.Registry
	Logger    *zap.Logger
	Clock     clock.Clock
}

// NewWire constructs the dependency graph from cfg. The identity must
// already exist and open with passphrase. Allow-listed peers are
// registered before NewWire returns; failures there are logged and
// returned alongside a usable Wire.
func NewWire(cfg Config, passphrase string, logger *zap.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ids := store.NewIdentityFileStore(cfg.DataDir)
	id, err := ids.LoadIdentity(passphrase)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, err
	}
	self := crypto.KeyHex(id.Public)

	hc := cfg.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	tr, err := hubnet.New(hub.NewClient(cfg.HubURL, hc), hubnet.Options{
		Self: self,
		Profile: domain.Presence{
			Online: true,
			Name:   cfg.Name,
			Status: cfg.Status,
		},
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	allowed, _ := cfg.AllowedKeys() // already validated
	eng := relay.New(tr, relay.Options{
		ResendInterval: time.Duration(cfg.ResendInterval),
		AckWindow:      cfg.AckWindow,
		Allowed:        allowed,
		Logger:         logger,
		Metrics:        metrics.NewRelay(reg),
	})

	w := &Wire{
		Config:    cfg,
		Self:      self,
		Identity:  ids,
		Transport: tr,
		Engine:    eng,
		Registry:  reg,
		Logger:    logger,
		Clock:     clock.New(),
	}
	logger.Info("forwarder ready",
		zap.String("key", string(self)),
		zap.String("fingerprint", string(crypto.Fingerprint(id.Public))),
		zap.String("hub", cfg.HubURL))

	if err := eng.RegisterAll(allowed); err != nil {
		return w, fmt.Errorf("allow-list: %w", err)
	}
	return w, nil
}
