package flows

import (
	"context"
	"net/http"

	"github.com/MrEthical07/goTutor/refresh"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Deps groups flow dependency sets. The Manager builds this once and delegates each
// operation to the matching flow.
type Deps struct {
	Request      RequestDeps
	Renew        RenewDeps
	Check        CheckDeps
	Authenticate AuthenticateDeps
}

// Service is the centralized flow runner built once by the Manager.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Request.Client != nil && s.deps.Renew.Client != nil
}

func (s Service) Request(ctx context.Context, spec RequestSpec) RequestResult {
	return RunRequest(ctx, spec, s.deps.Request)
}

func (s Service) Renew(ctx context.Context) RenewResult {
	return RunRenew(ctx, s.deps.Renew)
}

func (s Service) Check(ctx context.Context, trigger refresh.Trigger) CheckResult {
	return RunCheck(ctx, trigger, s.deps.Check)
}

func (s Service) Authenticate(ctx context.Context, url string, body []byte) AuthenticateResult {
	return RunAuthenticate(ctx, url, body, s.deps.Authenticate)
}
