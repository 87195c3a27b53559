// Command resolverctl is a thin client for resolverd's remote-control
// channel: it opens a connection, performs the magic handshake, sends
// one command line built from its arguments, and prints every
// response line until the daemon closes the connection.
package main

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/talvera/resolverd/internal/certsource"
)

var (
	serverAddr string
	socketPath string
	certFile   string
	keyFile    string
	caFile     string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "resolverctl <command> [args...]",
	Short: "Control client for the resolverd remote-control channel",
	Long: `resolverctl sends a single control command to a running resolverd
daemon and prints its response, e.g.:

  resolverctl status
  resolverctl local_zone example.com. static
  resolverctl flush_zone example.com.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runControl,
}

func init() {
	rootCmd.Flags().StringVar(&serverAddr, "server", "127.0.0.1:8953", "control channel address (host:port)")
	rootCmd.Flags().StringVar(&socketPath, "socket", "", "control channel unix socket path (overrides --server)")
	rootCmd.Flags().StringVar(&certFile, "cert", "", "client certificate file (required unless --socket is set)")
	rootCmd.Flags().StringVar(&keyFile, "key", "", "client key file")
	rootCmd.Flags().StringVar(&caFile, "ca", "", "CA bundle trusted for the server certificate")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "connection and handshake timeout")
}

func runControl(cmd *cobra.Command, args []string) error {
	conn, err := dial()
	if err != nil {
		return fmt.Errorf("resolverctl: connect: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("UBCT1 ")); err != nil {
		return fmt.Errorf("resolverctl: send magic: %w", err)
	}

	line := strings.Join(args, " ") + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("resolverctl: send command: %w", err)
	}

	r := bufio.NewReader(conn)
	for {
		resp, err := r.ReadString('\n')
		if resp != "" {
			fmt.Print(resp)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("resolverctl: read response: %w", err)
		}
	}
}

// dial opens the control connection: a plain unix socket if --socket
// is set, otherwise a TLS connection authenticated with the client
// certificate, per spec.md §6.
func dial() (net.Conn, error) {
	if socketPath != "" {
		return net.DialTimeout("unix", socketPath, timeout)
	}

	if certFile == "" || keyFile == "" || caFile == "" {
		return nil, fmt.Errorf("--cert, --key and --ca are required to reach a TLS control channel")
	}

	src := certsource.NewFileSource(certFile, keyFile, caFile)
	mat, err := src.Load()
	if err != nil {
		return nil, err
	}
	serverName, _, _ := net.SplitHostPort(serverAddr)

	dialer := &net.Dialer{Timeout: timeout}
	return tls.DialWithDialer(dialer, "tcp", serverAddr, &tls.Config{
		Certificates: []tls.Certificate{mat.Cert},
		RootCAs:      mat.CAs,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
