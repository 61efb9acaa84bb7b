package mpi

import (
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Network connects one process per rank using network calls provided by
// the net package in the standard library. Network creates an all-to-all
// connection using the specified network protocol among all provided
// addresses, and uses encoding/gob on the wire, so some network protocols
// may not be appropriate. While Network is not built with security in
// mind, the network does confirm that every peer presents the same password
// (compared as a sha256 hash) before accepting any connection.
//
// Ranks are assigned by sorting Addrs, so every process agrees on them
// without communicating. Addr must be among Addrs.
//
// Each pair of processes shares two connections: one this process dials
// and sends on, and one it accepted and receives from. A reader goroutine
// per peer decodes incoming messages into the local mailbox, so a Send
// never waits for the matching Receive.
type Network struct {
	NetProto string        // Which network protocol to use (see net package for options)
	Addr     string        // Address of the local process
	Addrs    []string      // List of the addresses of all nodes. Addr must be among them
	Timeout  time.Duration // If set, Init fails if the connections are not made within the duration
	Password string

	// Listener, if set, is used instead of listening on Addr. It lets
	// callers bind the port before the addresses are distributed.
	Listener net.Listener

	// Logger receives connection-level events. slog.Default is used if nil.
	Logger *slog.Logger

	hashedPassword string

	myrank int // rank of this process
	nNodes int // total number of processes

	peers    []*peer
	box      *mailbox
	listener net.Listener
	closing  atomic.Bool
}

// peer holds the two connections to one other node.
type peer struct {
	dial   net.Conn // Send on
	listen net.Conn // Receive from

	mux sync.Mutex   // serializes encoding onto dial
	enc *gob.Encoder // encoder on dial, shared by all sends
	dec *gob.Decoder // decoder on listen, owned by the reader goroutine
}

type initialMessage struct {
	Password string
	Id       int
}

// message to send over the wire
type message struct {
	Tag   int
	Bytes []byte
}

// Init establishes the connections to all other nodes and returns the
// Comm for this process. If Timeout is set it bounds the whole
// establishment; ctx may also be used to abandon it.
func (n *Network) Init(ctx context.Context) (*Comm, error) {
	if n.NetProto == "" {
		n.NetProto = "tcp"
	}
	if n.Logger == nil {
		n.Logger = slog.Default()
	}
	sum := sha256.Sum256([]byte(n.Password))
	n.hashedPassword = hex.EncodeToString(sum[:])

	// Sort all of the addresses to ensure that all processes agree
	addrs := append([]string(nil), n.Addrs...)
	sort.Strings(addrs)
	n.Addrs = addrs
	for i := 0; i < len(addrs)-1; i++ {
		if addrs[i] == addrs[i+1] {
			return nil, fmt.Errorf("mpi init: address %q not unique", addrs[i])
		}
	}

	// Rank is the order in the list
	n.myrank = sort.SearchStrings(addrs, n.Addr)
	if !(n.myrank < len(addrs) && addrs[n.myrank] == n.Addr) {
		return nil, fmt.Errorf("mpi init: local address %q not in global list", n.Addr)
	}
	n.nNodes = len(addrs)
	cctx, err := NewContext(n.myrank, n.nNodes)
	if err != nil {
		return nil, err
	}

	if n.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.Timeout)
		defer cancel()
	}
	if err := n.startConnections(ctx); err != nil {
		n.close()
		return nil, err
	}
	for id, p := range n.peers {
		if id == n.myrank {
			continue
		}
		go n.receiveReader(id, p)
	}
	n.Logger.Debug("mpi network up", "rank", n.myrank, "size", n.nNodes, "addr", n.Addr)
	return &Comm{ctx: cctx, t: n}, nil
}

func (n *Network) startConnections(ctx context.Context) error {
	n.peers = make([]*peer, n.nNodes)
	for i := range n.peers {
		n.peers[i] = &peer{}
	}
	n.box = newMailbox()

	n.listener = n.Listener
	if n.listener == nil {
		var lc net.ListenConfig
		l, err := lc.Listen(ctx, n.NetProto, n.Addr)
		if err != nil {
			return fmt.Errorf("mpi init: error listening: %w", err)
		}
		n.listener = l
	}
	if n.nNodes == 1 {
		return nil
	}

	// Create bi-way all-to-all connections. Listen for all of the nodes and
	// dial all of the nodes at the same time.
	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() {
		// unblocks Accept when the deadline passes or a dial fails
		if gctx.Err() != nil {
			n.listener.Close()
		}
	})
	defer stop()
	g.Go(func() error { return n.establishListenConnections(gctx) })
	g.Go(func() error { return n.establishDialConnections(gctx) })
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("mpi init: %w", ctx.Err())
		}
		return err
	}
	return nil
}

// establishListenConnections accepts a connection from every other node.
func (n *Network) establishListenConnections(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n.nNodes-1; i++ {
		conn, err := n.listener.Accept()
		if err != nil {
			g.Wait()
			return fmt.Errorf("mpi init: error accepting: %w", err)
		}
		g.Go(func() error {
			// Decode an initialMessage. The decoder stays with the
			// connection, since it may have buffered past the handshake.
			dec := gob.NewDecoder(conn)
			var message initialMessage
			if err := dec.Decode(&message); err != nil {
				conn.Close()
				return fmt.Errorf("mpi init: handshake from %v: %w", conn.RemoteAddr(), err)
			}
			id, err := n.passwordAndId(message)
			if err != nil {
				conn.Close()
				return err
			}
			p := n.peers[id]
			p.mux.Lock()
			dup := p.listen != nil
			if !dup {
				p.listen, p.dec = conn, dec
			}
			p.mux.Unlock()
			if dup {
				conn.Close()
				return fmt.Errorf("mpi init: rank %d connected twice", id)
			}

			// Send back a handshake the other way
			return gob.NewEncoder(conn).Encode(initialMessage{
				Password: n.hashedPassword,
				Id:       n.myrank,
			})
		})
		if ctx.Err() != nil {
			break
		}
	}
	return g.Wait()
}

// establishDialConnections dials every other node, retrying until it
// answers or ctx is done.
func (n *Network) establishDialConnections(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n.nNodes; i++ {
		if i == n.myrank {
			continue // Don't dial yourself
		}
		g.Go(func() error {
			conn, err := n.dialRetry(ctx, n.Addrs[i])
			if err != nil {
				return fmt.Errorf("mpi init: dialing %s: %w", n.Addrs[i], err)
			}

			// Established the connection, send the first handshake message
			enc := gob.NewEncoder(conn)
			err = enc.Encode(initialMessage{
				Password: n.hashedPassword,
				Id:       n.myrank,
			})
			if err != nil {
				conn.Close()
				return err
			}

			// Receive the handshake message back
			var message initialMessage
			if err := gob.NewDecoder(conn).Decode(&message); err != nil {
				conn.Close()
				return fmt.Errorf("mpi init: handshake reply from %s: %w", n.Addrs[i], err)
			}
			id, err := n.passwordAndId(message)
			if err != nil {
				conn.Close()
				return err
			}
			if id != i {
				conn.Close()
				return fmt.Errorf("mpi init: %s answered as rank %d, expected %d", n.Addrs[i], id, i)
			}
			n.peers[i].dial, n.peers[i].enc = conn, enc
			return nil
		})
	}
	return g.Wait()
}

// dialRetry keeps dialing every 0.3s until a connection is reached, since
// the other node may not be listening yet.
func (n *Network) dialRetry(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	for {
		conn, err := d.DialContext(ctx, n.NetProto, addr)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), err)
		case <-ticker.C:
		}
	}
}

// Checks that the password matches what the network expects and that the
// id is valid
func (n *Network) passwordAndId(message initialMessage) (int, error) {
	if message.Password != n.hashedPassword {
		return -1, errors.New("mpi init: bad password")
	}
	if message.Id >= n.nNodes || message.Id < 0 || message.Id == n.myrank {
		return -1, fmt.Errorf("mpi init: bad id: %v", message.Id)
	}
	return message.Id, nil
}

// receiveReader reads messages from source until the connection closes and
// delivers them to the mailbox.
func (n *Network) receiveReader(source int, p *peer) {
	for {
		var m message
		if err := p.dec.Decode(&m); err != nil {
			if n.closing.Load() {
				return
			}
			// A peer that finished and closed its Comm is not a failure
			// of the others; only receives from it stop.
			if errors.Is(err, io.EOF) {
				n.Logger.Debug("mpi peer closed", "rank", n.myrank, "source", source)
			} else {
				n.Logger.Error("mpi receive failed", "rank", n.myrank, "source", source, "err", err)
			}
			n.box.closeSource(source, fmt.Errorf("mpi: connection from %d: %w", source, err))
			return
		}
		n.box.put(source, m.Tag, m.Bytes)
	}
}

func (n *Network) send(dest, tag int, b []byte) error {
	if dest == n.myrank {
		n.box.put(dest, tag, b)
		return nil
	}
	p := n.peers[dest]
	p.mux.Lock()
	defer p.mux.Unlock()
	if err := p.enc.Encode(message{Tag: tag, Bytes: b}); err != nil {
		return fmt.Errorf("mpi: send to %d: %w", dest, err)
	}
	return nil
}

func (n *Network) receive(source, tag int) ([]byte, error) {
	return n.box.take(source, tag)
}

func (n *Network) close() error {
	n.closing.Store(true)
	var errs []error
	if n.listener != nil {
		if err := n.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}
	for _, p := range n.peers {
		if p.dial != nil {
			errs = append(errs, p.dial.Close())
		}
		if p.listen != nil {
			errs = append(errs, p.listen.Close())
		}
	}
	if n.box != nil {
		n.box.close(ErrClosed)
	}
	return errors.Join(errs...)
}
