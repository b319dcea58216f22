package blinkpipe

import (
	"net"
	"sync"

	"github.com/e1732a364fed/blinkpipe/netLayer"
	"github.com/e1732a364fed/blinkpipe/presetLayer"
	"github.com/e1732a364fed/blinkpipe/utils"
	"go.uber.org/zap"
)

// Server accepts connections and relays each of them through a fresh pipeline of the configured
// presets. The same type serves both roles.
type Server struct {
	isClient   bool
	network    string
	listenAddr string
	xver       int
	targetXver int

	remote *netLayer.Addr //client only
	target *netLayer.Addr //may be nil on the server

	chain *presetLayer.Chain
	gi    *GlobalInfo

	mu       sync.Mutex
	listener net.Listener
	conns    map[*relayConn]struct{}
}

// NewServer checks conf and builds the preset chain. presetLayer.Setup must have been called.
// gi may be nil.
func NewServer(conf *StandardConf, gi *GlobalInfo) (*Server, error) {
	if conf == nil {
		return nil, utils.ErrNilParameter
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	chain, err := presetLayer.NewChain(conf.Presets)
	if err != nil {
		return nil, err
	}
	if gi == nil {
		gi = new(GlobalInfo)
	}

	s := &Server{
		isClient:   conf.IsClient(),
		network:    conf.Network,
		listenAddr: conf.Listen,
		xver:       conf.Xver,
		targetXver: conf.TargetXver,
		chain:      chain,
		gi:         gi,
		conns:      make(map[*relayConn]struct{}),
	}
	if conf.Remote != "" {
		a, err := netLayer.HostToAddress(conf.Remote)
		if err != nil {
			return nil, err
		}
		s.remote = &a
	}
	if conf.Target != "" {
		a, err := netLayer.HostToAddress(conf.Target)
		if err != nil {
			return nil, err
		}
		s.target = &a
	}

	//some params can only be checked with an Env, e.g. ss-base on a client needs a target
	dry, err := chain.NewPipeline(s.env(nil), discard, discard)
	if err != nil {
		return nil, err
	}
	dry.Close()

	return s, nil
}

func discard([]byte) error { return nil }

// env returns the Env for a new connection. onTarget is only used on the server.
func (s *Server) env(onTarget func(netLayer.Addr) error) presetLayer.Env {
	if s.isClient {
		return presetLayer.Env{IsClient: true, Target: s.target}
	}
	return presetLayer.Env{OnTarget: onTarget}
}

func (s *Server) IsClient() bool {
	return s.isClient
}

func (s *Server) Presets() []string {
	return s.chain.Names()
}

// Addr returns the address being listened on, or nil before ListenAndServe.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe starts listening. It doesn't block; every accepted connection is served in its own goroutine.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return utils.ErrInErr{ErrDesc: "already listening", Data: s.listener.Addr().String()}
	}

	lis, err := netLayer.ListenAndAccept(s.network, s.listenAddr, s.xver, s.handleNewIncomeConnection)
	if err != nil {
		if ce := utils.CanLogErr("can not listen"); ce != nil {
			ce.Write(zap.String("addr", s.listenAddr), zap.Error(err))
		}
		return err
	}
	s.listener = lis

	if ce := utils.CanLogInfo("Listening"); ce != nil {
		role := RoleServer
		if s.isClient {
			role = RoleClient
		}
		ce.Write(
			zap.String("role", role),
			zap.String("addr", lis.Addr().String()),
			zap.Strings("presets", s.chain.Names()),
		)
	}
	return nil
}

// Stop closes the listener and every connection still being relayed.
func (s *Server) Stop() error {
	s.mu.Lock()
	lis := s.listener
	s.listener = nil
	conns := make([]*relayConn, 0, len(s.conns))
	for rc := range s.conns {
		conns = append(conns, rc)
	}
	s.mu.Unlock()

	var err error
	if lis != nil {
		err = lis.Close()
	}
	for _, rc := range conns {
		rc.close()
	}
	return err
}

func (s *Server) track(rc *relayConn, add bool) {
	s.mu.Lock()
	if add {
		s.conns[rc] = struct{}{}
	} else {
		delete(s.conns, rc)
	}
	s.mu.Unlock()
}

func (s *Server) handleNewIncomeConnection(conn net.Conn) {
	if ce := utils.CanLogDebug("new connection"); ce != nil {
		ce.Write(zap.String("from", conn.RemoteAddr().String()))
	}

	rc, err := newRelayConn(s, conn)
	if err != nil {
		if ce := utils.CanLogWarn("failed to set up connection"); ce != nil {
			ce.Write(zap.String("from", conn.RemoteAddr().String()), zap.Error(err))
		}
		conn.Close()
		return
	}

	s.track(rc, true)
	s.gi.ActiveConnectionCount.Inc()

	rc.relay()

	s.gi.ActiveConnectionCount.Dec()
	s.track(rc, false)
}
