package racadm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/crypto/ssh"

	"github.com/ethereum-optimism/infra/op-hwval/config"
	"github.com/ethereum-optimism/infra/op-hwval/sut"
)

// DefaultDialTimeout bounds the TCP dial and the SSH handshake when
// Connector.DialTimeout is unset.
const DefaultDialTimeout = 30 * time.Second

// Connector dials the management controller over SSH
type Connector struct {
	Log             log.Logger
	DialTimeout     time.Duration
	PollInterval    time.Duration
	HostKeyCallback ssh.HostKeyCallback // defaults to accepting any host key
}

var _ sut.Connector = (*Connector)(nil)

// Connect implements sut.Connector
func (c *Connector) Connect(ctx context.Context, cd config.CommonData, logDir string) (sut.Session, error) {
	logger := c.Log
	if logger == nil {
		logger = log.New()
	}
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	hostKeyCallback := c.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // lab controllers use self-generated keys
	}

	clientCfg := &ssh.ClientConfig{
		User: cd.IDRACUser,
		Auth: []ssh.AuthMethod{
			ssh.Password(cd.IDRACPwd),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = cd.IDRACPwd
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(cd.IDRACIP, strconv.Itoa(cd.SSHPort))
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := handshake(ctx, conn, addr, clientCfg, timeout)
	if err != nil {
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	logger.Info("Connected to management controller", "addr", addr, "user", cd.IDRACUser)

	return newSession(&sshCommander{client: ssh.NewClient(sshConn, chans, reqs)}, logger, logDir, c.PollInterval), nil
}

// handshake runs the SSH client handshake on conn. The handshake must finish
// within timeout and is aborted when ctx is done. conn is closed on failure.
func handshake(ctx context.Context, conn net.Conn, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = conn.Close()
		return nil, nil, nil, err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if !stop() {
		// ctx fired and conn is already closed
		if err == nil {
			_ = sshConn.Close()
		}
		return nil, nil, nil, ctx.Err()
	}
	if err != nil {
		_ = conn.Close()
		return nil, nil, nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = sshConn.Close()
		return nil, nil, nil, err
	}
	return sshConn, chans, reqs, nil
}

// sshCommander runs each command in its own SSH session
type sshCommander struct {
	client *ssh.Client
}

func (c *sshCommander) Run(ctx context.Context, command string) (string, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("new ssh session: %w", err)
	}
	defer sess.Close()

	var out bytes.Buffer
	sess.Stdout = &out
	sess.Stderr = &out

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), fmt.Errorf("exit status %d", exitErr.ExitStatus())
		}
		return out.String(), err
	}
}

func (c *sshCommander) Close() error {
	return c.client.Close()
}
