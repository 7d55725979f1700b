// Command barter is a CLI client for the barter marketplace.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/barterhub/barter/internal/auth"
	grpcserver "github.com/barterhub/barter/internal/server/grpc"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "barter")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "barter")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run `barter token` first)")
	}
	return tf.AccessToken, nil
}

// ---- grpc dial ----

type bearerCreds struct {
	token  string
	secure bool
}

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return b.secure }

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // dev only
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

type dialConfig struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
}

func dial(ctx context.Context, dc dialConfig, bearer string) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if !dc.plaintext {
		var err error
		if creds, err = loadTLS(dc.caPath, dc.insecure); err != nil {
			return nil, err
		}
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpcserver.CallOptions()...),
	}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer, secure: !dc.plaintext}))
	}
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	return grpc.DialContext(ctx, dc.addr, opts...)
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// parseIDs splits a comma separated list of uuids. Empty input yields nil.
func parseIDs(s string) ([]uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []uuid.UUID
	for _, part := range strings.Split(s, ",") {
		id, err := uuid.FromString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("bad id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

func parseOptID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.FromString(s)
	if err != nil {
		return nil, fmt.Errorf("bad id %q", s)
	}
	return &id, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `barter CLI
Usage:
  barter -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  token     -key <hs256 key> [-user <uuid>] [-ttl 24h]     (dev: issue and save a token)
  item      create -title T [-desc D] [-condition C] [-category C] [-type T] [-images a,b]
            list [-all] | get -id ID | rm -id ID | check -ids a,b
  offer     create [-to USER] -give a,b [-want c,d] [-msg M]
            counter -parent ID -give a,b -want c,d [-msg M]
            accept -id ID | complete -id ID | cancel -id ID [-reason R]
            get -id ID | chain -id ID | list [-role initiator|target] [-status S]
            broadcast [-limit N] [-offset N]
  interest  add -offer ID | list -offer ID | mine
  chat      open (-offer ID | -user USER) | send -conv ID -text T
            messages -conv ID [-cursor C] [-limit N] | list
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	var dc dialConfig
	flag.StringVar(&dc.addr, "addr", "localhost:8443", "server addr")
	flag.StringVar(&dc.caPath, "cacert", "", "CA cert (PEM)")
	flag.BoolVar(&dc.insecure, "insecure", false, "skip cert verify (dev)")
	flag.BoolVar(&dc.plaintext, "plaintext", false, "connect without TLS (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	args := flag.Args()

	switch args[0] {
	case "version":
		fmt.Printf("barter %s (%s)\n", version, buildDate)
		return
	case "token":
		if err := cmdToken(args[1:], os.Stdout); err != nil {
			fail(err, nil)
		}
		return
	}
	if len(args) < 2 {
		usage()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := loadToken()
	if err != nil {
		fail(err, nil)
	}
	cc, err := dial(ctx, dc, token)
	if err != nil {
		fail(err, nil)
	}
	defer cc.Close()

	r := &runner{cl: grpcserver.NewClient(cc)}
	out, err := r.run(ctx, args[0], args[1], args[2:])
	if errors.Is(err, errUsage) {
		usage()
	}
	if err != nil {
		fail(err, r.trailer.Get(grpcserver.ItemIDsTrailer))
	}
	printJSON(os.Stdout, out)
}

// cmdToken issues a token signed with the server key. Identity is external to the
// service; this exists for development and demos.
func cmdToken(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	key := fs.String("key", os.Getenv("BARTER_JWT_KEY"), "HS256 signing key")
	user := fs.String("user", "", "user id, random when empty")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *key == "" {
		return errors.New("need -key or BARTER_JWT_KEY")
	}
	id := uuid.Must(uuid.NewV4())
	if *user != "" {
		var err error
		if id, err = uuid.FromString(*user); err != nil {
			return fmt.Errorf("bad -user: %w", err)
		}
	}
	now := time.Now()
	tok, err := auth.Issue(id, []byte(*key), now, *ttl)
	if err != nil {
		return err
	}
	if err := saveToken(tokenFile{AccessToken: tok, UserID: id.String(), ExpiresAt: now.Add(*ttl)}); err != nil {
		return err
	}
	fmt.Fprintln(w, id)
	return nil
}

func fail(err error, itemIDs []string) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		if len(itemIDs) > 0 {
			fmt.Fprintf(os.Stderr, "items: %s\n", strings.Join(itemIDs, ", "))
		}
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// idFlag registers a required uuid flag, parses args and returns its value.
func idFlag(fs *flag.FlagSet, name string, args []string) (uuid.UUID, error) {
	raw := fs.String(name, "", name+" (uuid)")
	if err := fs.Parse(args); err != nil {
		return uuid.Nil, err
	}
	if *raw == "" {
		return uuid.Nil, fmt.Errorf("need -%s", name)
	}
	id, err := uuid.FromString(*raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad -%s %q", name, *raw)
	}
	return id, nil
}
