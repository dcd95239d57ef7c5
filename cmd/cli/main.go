// Command profilectl is a CLI client for the profiled service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"github.com/and161185/profiled/internal/auth"
	"github.com/and161185/profiled/internal/crypto/clientcrypto"
	grpcserver "github.com/and161185/profiled/internal/server/grpc"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "profilectl")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "profilectl")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
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
		return "", errors.New("no valid token (run set-token)")
	}
	return tf.AccessToken, nil
}

// tokenExpiry reads exp without verifying the signature; the server does that.
func tokenExpiry(tok string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// ---- grpc dial ----

type bearerCreds struct{ token string }

func (b bearerCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}
func (b bearerCreds) RequireTransportSecurity() bool { return true }

func loadTLS(caPath string, insecure bool) (credentials.TransportCredentials, error) {
	if insecure {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
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

func dial(addr, caPath string, insecure bool, bearer string) (*grpc.ClientConn, *grpcserver.ProfileClient, error) {
	creds, err := loadTLS(caPath, insecure)
	if err != nil {
		return nil, nil, err
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if bearer != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: bearer}))
	}
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return cc, grpcserver.NewProfileClient(cc), nil
}

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `profilectl CLI
Usage:
  profilectl -addr HOST:PORT [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  set-token  -token <jwt>                          (saves token)
  dev-token  -key <hs256 key> -user <uuid> [-ttl 1h] (issues and saves token)
  me
  update     -color <accent> [-name <name>] [-handle <handle>]
  rotate     -old <password> -new <password>
  enroll     -p <password>                        (prints a fresh credential bundle)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	connect := func() (*grpc.ClientConn, *grpcserver.ProfileClient) {
		token, err := loadToken()
		if err != nil {
			fail(err)
		}
		cc, cli, err := dial(*addr, *caPath, *insecure, token)
		if err != nil {
			fail(err)
		}
		return cc, cli
	}

	switch cmd {

	case "version":
		fmt.Printf("profilectl %s (%s)\n", version, buildDate)

	case "set-token":
		fs := flag.NewFlagSet("set-token", flag.ExitOnError)
		tok := fs.String("token", "", "access token (JWT)")
		_ = fs.Parse(args)
		if *tok == "" {
			fmt.Fprintln(os.Stderr, "need -token")
			os.Exit(1)
		}
		exp, err := tokenExpiry(*tok)
		if err != nil {
			fail(err)
		}
		if err := saveToken(*tok, exp); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "dev-token":
		fs := flag.NewFlagSet("dev-token", flag.ExitOnError)
		key := fs.String("key", "", "HS256 signing key")
		user := fs.String("user", "", "user id (uuid)")
		ttl := fs.Duration("ttl", time.Hour, "token TTL")
		_ = fs.Parse(args)
		id, err := uuid.FromString(*user)
		if *key == "" || err != nil {
			fmt.Fprintln(os.Stderr, "need -key and a valid -user")
			os.Exit(1)
		}
		tok, exp, err := auth.Issue([]byte(*key), id, *ttl)
		if err != nil {
			fail(err)
		}
		if err := saveToken(tok, exp); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "me":
		cc, cli := connect()
		defer cc.Close()
		out, err := cli.GetMe(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(out.AsMap())

	case "update":
		fs := flag.NewFlagSet("update", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		handle := fs.String("handle", "", "handle")
		color := fs.String("color", "", "accent color")
		_ = fs.Parse(args)
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

		m, err := buildUpdate(*name, *handle, *color, set)
		if err != nil {
			fail(err)
		}
		req, err := toRequest(m)
		if err != nil {
			fail(err)
		}
		cc, cli := connect()
		defer cc.Close()
		if err := cli.UpdateMe(ctx, req); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "rotate":
		fs := flag.NewFlagSet("rotate", flag.ExitOnError)
		oldPw := fs.String("old", "", "current password")
		newPw := fs.String("new", "", "new password")
		_ = fs.Parse(args)
		if *oldPw == "" || *newPw == "" {
			fmt.Fprintln(os.Stderr, "need -old and -new")
			os.Exit(1)
		}
		cc, cli := connect()
		defer cc.Close()

		cur, err := cli.GetMe(ctx)
		if err != nil {
			fail(err)
		}
		st, err := parseStored(cur)
		if err != nil {
			fail(err)
		}
		m, err := clientcrypto.NewRotation([]byte(*oldPw), []byte(*newPw), st.Salt, st.EncryptedPrivateKey)
		if err != nil {
			fail(err)
		}
		// accentColor is mandatory on the wire; resend the current one.
		m.AccentColor = &st.AccentColor
		req, err := toRequest(m)
		if err != nil {
			fail(err)
		}
		if err := cli.UpdateMe(ctx, req); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "enroll":
		fs := flag.NewFlagSet("enroll", flag.ExitOnError)
		pw := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *pw == "" {
			fmt.Fprintln(os.Stderr, "need -p")
			os.Exit(1)
		}
		b, _, err := clientcrypto.Enroll([]byte(*pw))
		if err != nil {
			fail(err)
		}
		printJSON(bundleJSON(b))

	default:
		usage()
	}
}

func fail(err error) {
	if s, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "rpc error: code=%s msg=%s\n", s.Code(), s.Message())
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
