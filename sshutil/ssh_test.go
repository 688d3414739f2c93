package sshutil

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestKey(t *testing.T) (string, ssh.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_rsa")
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))

	pub, err := ssh.NewPublicKey(&key.PublicKey)
	require.NoError(t, err)

	return path, pub
}

func TestConfigAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:2222", Config{Host: "127.0.0.1", Port: 2222}.Addr())
	assert.Equal(t, "[::1]:22", Config{Host: "::1", Port: 22}.Addr())
}

func TestConfigValidate(t *testing.T) {
	good := Config{Host: "localhost", Port: 22, User: "vagrant", PrivateKeyPath: "/tmp/key"}
	require.NoError(t, good.Validate())

	for _, mutate := range []func(*Config){
		func(c *Config) { c.Host = "" },
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.User = "bad user" },
		func(c *Config) { c.PrivateKeyPath = "" },
	} {
		c := good
		mutate(&c)
		assert.Error(t, c.Validate())
	}
}

func TestClientConfig(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	conf, err := ClientConfig(testLogger(), Config{
		Host:           "localhost",
		Port:           2222,
		User:           "vagrant",
		PrivateKeyPath: keyPath,
	})
	require.NoError(t, err)

	assert.Equal(t, "vagrant", conf.User)
	assert.Equal(t, defaultTimeout, conf.Timeout)
	assert.Equal(t, defaultTimeout, Config{}.EffectiveTimeout())
	assert.Equal(t, time.Second*3, Config{Timeout: time.Second * 3}.EffectiveTimeout())
	assert.Len(t, conf.Auth, 1)
	assert.NotNil(t, conf.HostKeyCallback)
}

func TestClientConfigKnownHosts(t *testing.T) {
	keyPath, pub := writeTestKey(t)

	knownHostsPath := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{"[localhost]:2222"}, pub)
	require.NoError(t, os.WriteFile(knownHostsPath, []byte(line+"\n"), 0o600))

	conf, err := ClientConfig(testLogger(), Config{
		Host:           "localhost",
		Port:           2222,
		User:           "vagrant",
		PrivateKeyPath: keyPath,
		KnownHostsPath: knownHostsPath,
		Timeout:        time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Second, conf.Timeout)

	_, err = ClientConfig(testLogger(), Config{
		Host:           "localhost",
		Port:           2222,
		User:           "vagrant",
		PrivateKeyPath: keyPath,
		KnownHostsPath: filepath.Join(t.TempDir(), "missing"),
	})
	assert.Error(t, err)
}

func TestClientConfigBadKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id_rsa")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o600))

	_, err := ClientConfig(testLogger(), Config{Host: "localhost", Port: 22, User: "vagrant", PrivateKeyPath: path})
	assert.Error(t, err)
}

func TestDialCanceled(t *testing.T) {
	keyPath, _ := writeTestKey(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, testLogger(), Config{Host: "127.0.0.1", Port: 1, User: "vagrant", PrivateKeyPath: keyPath})
	assert.Error(t, err)
}

// newPipeClient returns a client connected to an in-memory SSH server.
// Every exec request is acknowledged and then handed to handle.
func newPipeClient(t *testing.T, handle func(ch ssh.Channel, cmd string)) *ssh.Client {
	t.Helper()

	hostKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	srvConf := &ssh.ServerConfig{NoClientAuth: true}
	srvConf.AddHostKey(signer)

	clientConn, serverConn := net.Pipe()

	go func() {
		_, chans, reqs, err := ssh.NewServerConn(serverConn, srvConf)
		if err != nil {
			return
		}

		go ssh.DiscardRequests(reqs)

		for nc := range chans {
			ch, chReqs, err := nc.Accept()
			if err != nil {
				continue
			}

			go func() {
				for req := range chReqs {
					if req.WantReply {
						_ = req.Reply(req.Type == "exec", nil)
					}

					if req.Type == "exec" {
						// Payload is a uint32 length followed by the command.
						go handle(ch, string(req.Payload[4:]))
					}
				}
			}()
		}
	}()

	conn, chans, reqs, err := ssh.NewClientConn(clientConn, "pipe", &ssh.ClientConfig{
		User:            "vagrant",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // In-memory test server.
	})
	require.NoError(t, err)

	sc := ssh.NewClient(conn, chans, reqs)
	t.Cleanup(func() { _ = sc.Close() })

	return sc
}

func TestRunSSHCmd(t *testing.T) {
	sc := newPipeClient(t, func(ch ssh.Channel, cmd string) {
		_, _ = ch.Write([]byte("ran: " + cmd))
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
		_ = ch.Close()
	})

	out, err := RunSSHCmd(context.Background(), sc, time.Second*5, "id -u alpine")
	require.NoError(t, err)
	assert.Equal(t, "ran: id -u alpine", string(out))
}

func TestRunSSHCmdHonorsTimeout(t *testing.T) {
	sc := newPipeClient(t, func(ssh.Channel, string) {
		// Never answers.
	})

	start := time.Now()
	_, err := RunSSHCmd(context.Background(), sc, time.Millisecond*200, "sleep 60")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), time.Second*5)
}
