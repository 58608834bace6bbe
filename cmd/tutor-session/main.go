// Command tutor-session manages a persisted learner session from the terminal: log in,
// inspect or renew the session, call backend endpoints with it, and keep it alive.
//
// Usage:
//
//	tutor-session [-env .env] <command> [flags] [args]
//
// Commands:
//
//	login -email E -password P [-otp CODE]
//	otp -email E -code CODE
//	status
//	request [-X METHOD] [-d JSON] [-public] PATH
//	grades
//	renew
//	keepalive [-for DURATION]
//	logout
//
// Settings come from TUTOR_* environment variables or the -env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	goTutor "github.com/MrEthical07/goTutor"
	"github.com/MrEthical07/goTutor/api"
	"github.com/MrEthical07/goTutor/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type cli struct {
	m      *goTutor.Manager
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("tutor-session", flag.ContinueOnError)
	global.SetOutput(stderr)
	envFile := global.String("env", "", "path to an env file (default .env)")
	verbose := global.Bool("v", false, "log session warnings")
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "usage: tutor-session [-env FILE] <login|otp|status|request|grades|renew|keepalive|logout> ...")
		return 2
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	backend, closeBackend, err := cfg.OpenBackend()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeBackend()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(stderr, "", log.LstdFlags)
	}
	m, err := goTutor.New().
		WithConfig(cfg.Session()).
		WithBackend(backend).
		WithLogger(logger).
		Build()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer m.Close()

	c := &cli{m: m, stdout: stdout, stderr: stderr}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "login":
		err = c.login(ctx, cmdArgs)
	case "otp":
		err = c.otp(ctx, cmdArgs)
	case "status":
		err = c.status()
	case "request":
		err = c.request(ctx, cmdArgs)
	case "grades":
		err = c.grades(ctx)
	case "renew":
		err = c.renew(ctx)
	case "keepalive":
		err = c.keepalive(ctx, cmdArgs)
	case "logout":
		err = m.Logout(ctx)
		if err == nil {
			fmt.Fprintln(stdout, "logged out")
		}
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	code := fs.String("otp", "", "one-time code, when the account needs one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("-email and -password are required")
	}

	resp, err := c.m.Login(ctx, goTutor.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if resp.RequiresOTP() {
		if *code == "" {
			fmt.Fprintln(c.stdout, "one-time code required; run: tutor-session otp -email", *email, "-code CODE")
			return nil
		}
		if resp, err = c.m.VerifyOTP(ctx, goTutor.OTPRequest{Email: *email, OTP: *code}); err != nil {
			return err
		}
	}
	c.printUser("logged in", resp)
	return nil
}

func (c *cli) otp(ctx context.Context, args []string) error {
	fs := c.flags("otp")
	email := fs.String("email", "", "account email")
	code := fs.String("code", "", "one-time code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := c.m.VerifyOTP(ctx, goTutor.OTPRequest{Email: *email, OTP: *code})
	if err != nil {
		return err
	}
	c.printUser("verified", resp)
	return nil
}

func (c *cli) printUser(prefix string, resp *goTutor.AuthResponse) {
	if resp == nil || resp.User == nil {
		fmt.Fprintln(c.stdout, prefix)
		return
	}
	fmt.Fprintf(c.stdout, "%s as %s (%s)\n", prefix, resp.User.Email, resp.User.Role)
}

func (c *cli) status() error {
	if !c.m.IsAuthenticated() {
		fmt.Fprintln(c.stdout, "not logged in")
		return nil
	}
	u := c.m.User()
	name := "unknown user"
	if u != nil {
		name = fmt.Sprintf("%s (%s, %s)", u.Email, u.Role, u.Grade)
	}
	fmt.Fprintf(c.stdout, "logged in as %s\nstate: %s\nage: %s\n", name, c.m.State(), c.m.Age().Round(time.Second))
	if c.m.StorageDegraded() {
		fmt.Fprintln(c.stdout, "storage: degraded (memory only)")
	}
	return nil
}

func (c *cli) request(ctx context.Context, args []string) error {
	fs := c.flags("request")
	method := fs.String("X", "GET", "HTTP method")
	data := fs.String("d", "", "JSON request body")
	public := fs.Bool("public", false, "send without the access token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one PATH is required")
	}

	var body any
	if *data != "" {
		if !json.Valid([]byte(*data)) {
			return errors.New("-d must be valid JSON")
		}
		body = json.RawMessage(*data)
	}
	var opts []goTutor.RequestOption
	if *public {
		opts = append(opts, goTutor.WithoutAuth())
	}

	var out json.RawMessage
	if err := c.m.Request(ctx, strings.ToUpper(*method), fs.Arg(0), body, &out, opts...); err != nil {
		return err
	}
	return c.printJSON(out)
}

func (c *cli) grades(ctx context.Context) error {
	out, err := api.New(c.m).Public.Grades(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(out)
}

func (c *cli) printJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		_, err = c.stdout.Write(append(raw, '\n'))
		return err
	}
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) renew(ctx context.Context) error {
	if err := c.m.Renew(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "session renewed")
	return nil
}

func (c *cli) keepalive(ctx context.Context, args []string) error {
	fs := c.flags("keepalive")
	d := fs.Duration("for", 0, "how long to keep the session alive (0 = until interrupted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !c.m.IsAuthenticated() {
		return goTutor.ErrNotAuthenticated
	}
	if *d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *d)
		defer cancel()
	}

	ended := make(chan error, 1)
	unsubscribe := c.m.OnAuthChange(func(ch goTutor.AuthChange) {
		switch {
		case ch.Reason == goTutor.ReasonRefresh:
			fmt.Fprintln(c.stdout, "session renewed")
		case !ch.Authenticated:
			select {
			case ended <- ch.Err:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := c.m.Start(ctx); err != nil {
		return err
	}
	defer c.m.Stop()

	select {
	case <-ctx.Done():
		fmt.Fprintf(c.stdout, "stopped after %d renewals\n", c.m.RenewalCalls())
		return nil
	case err := <-ended:
		if err == nil {
			err = goTutor.ErrNotAuthenticated
		}
		return err
	}
}
