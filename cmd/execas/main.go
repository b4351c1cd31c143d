// Package main provides the entry point for the execas privilege broker.
// It re-authenticates the invoking user, consults the authorization policy,
// and on approval replaces itself with the requested command running with
// elevated privilege.
package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/McRaeAlex/execas/internal/broker"
	"github.com/McRaeAlex/execas/internal/cmdcommon"
	"github.com/McRaeAlex/execas/internal/config"
	"github.com/McRaeAlex/execas/internal/credential"
	"github.com/McRaeAlex/execas/internal/handoff"
	"github.com/McRaeAlex/execas/internal/identity"
	"github.com/McRaeAlex/execas/internal/logging"
	"github.com/McRaeAlex/execas/internal/policy"
	"github.com/McRaeAlex/execas/internal/secret"
	"github.com/McRaeAlex/execas/internal/terminal"
)

var (
	configPath     = flag.String("config", cmdcommon.DefaultConfigPath, "path to config file")
	logLevel       = flag.String("log-level", "", "log level (debug, info, warn, error); overrides config")
	validateOnly   = flag.Bool("validate", false, "validate config, policy, and credential store, then exit")
	enrollName     = flag.String("enroll", "", "enroll or replace the credential for the named user (root only)")
	errNeedsRoot   = errors.New("must be run as root")
	errEnrollAbort = errors.New("enrollment aborted")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <command> [args...]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	os.Exit(run())
}

func run() int {
	invocationID := logging.NewInvocationID()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "execas: %v\n", err)
		return cmdcommon.ExitUsage
	}

	level := cfg.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	logger, err := logging.Setup(level, invocationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "execas: %v\n", err)
		return cmdcommon.ExitUsage
	}

	switch {
	case *enrollName != "":
		return runEnroll(cfg, logger)
	case *validateOnly:
		return runValidate(cfg, logger)
	default:
		return runBroker(cfg, logger, invocationID)
	}
}

// loadConfig loads the TOML config. The default path is optional; a path
// given explicitly on the command line must exist.
func loadConfig() (*config.Config, error) {
	required := *configPath != cmdcommon.DefaultConfigPath
	return config.NewLoader().Load(*configPath, required)
}

func runBroker(cfg *config.Config, logger *slog.Logger, invocationID string) int {
	args := flag.Args()
	if len(args) == 0 {
		usage()
		return cmdcommon.ExitUsage
	}
	request := broker.Request{Command: args[0], Args: args[1:]}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := credential.NewStore(cfg.CredentialPath, logger)
	verifier := credential.NewVerifier(store, terminal.NewTTYChannel(), logger,
		credential.WithPrompt(cfg.Prompt),
		credential.WithTimeout(cfg.PromptTimeout()),
	)
	policyLoader := policy.NewLoader(logger)

	engine := broker.New(broker.Config{
		Resolver:     identity.NewResolver(),
		Verifier:     verifier,
		Policy:       broker.PolicyFunc(func() (*policy.Document, error) { return policyLoader.Load(cfg.PolicyPath) }),
		Executor:     handoff.NewExecutor(logger),
		Audit:        logging.NewAuditLogger(logger),
		Logger:       logger,
		InvocationID: invocationID,
	})

	decision := engine.Run(ctx, request)

	// Reaching this point means the process image was not replaced. The
	// user gets a category-level message only; diagnostic detail stays on
	// the admin channel keyed by the invocation ID.
	logger.Error("escalation did not hand off",
		"reason", string(decision.Reason),
		"command", request.Command,
		"error", decision.Err)
	fmt.Fprintf(os.Stderr, "execas: %s\n", userMessage(decision.Reason))
	return cmdcommon.ExitCodeFor(decision.Reason)
}

// userMessage is the terse, non-detail-leaking denial text. Authentication
// failures share one message whether the secret mismatched or the user was
// never enrolled, so failures cannot be used to enumerate users.
func userMessage(reason broker.Reason) string {
	switch reason {
	case broker.ReasonIdentity:
		return "cannot resolve invoking user"
	case broker.ReasonPrivilege:
		return "not running with elevated privileges (is the binary installed setuid root?)"
	case broker.ReasonAuthentication:
		return "authentication failed"
	case broker.ReasonAuthorization:
		return "permission denied"
	case broker.ReasonHandoff:
		return "failed to execute command"
	default:
		return "request denied"
	}
}

// runValidate checks that the config, policy, and credential store load
// and pass their trust checks, reporting to stderr. Administrator use.
func runValidate(cfg *config.Config, logger *slog.Logger) int {
	failed := false

	doc, err := policy.NewLoader(logger).Load(cfg.PolicyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "policy %s: %v\n", cfg.PolicyPath, err)
		failed = true
	} else {
		fmt.Fprintf(os.Stderr, "policy %s: ok (%d entries)\n", cfg.PolicyPath, doc.Len())
	}

	store := credential.NewStore(cfg.CredentialPath, logger)
	if err := store.Validate(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "credentials %s: not present\n", cfg.CredentialPath)
		} else {
			fmt.Fprintf(os.Stderr, "credentials %s: %v\n", cfg.CredentialPath, err)
		}
		failed = true
	} else {
		fmt.Fprintf(os.Stderr, "credentials %s: ok\n", cfg.CredentialPath)
	}

	if failed {
		return cmdcommon.ExitUsage
	}
	return cmdcommon.ExitSuccess
}

// runEnroll creates or replaces a credential record. Only the trusted
// authority may enroll, and the new secret is read twice from the terminal
// with echo disabled.
func runEnroll(cfg *config.Config, logger *slog.Logger) int {
	if err := enroll(cfg, logger); err != nil {
		logger.Error("enrollment failed", "principal", *enrollName, "error", err)
		fmt.Fprintf(os.Stderr, "execas: enrollment failed: %v\n", err)
		return cmdcommon.ExitUsage
	}
	fmt.Fprintf(os.Stderr, "enrolled credential for %s\n", *enrollName)
	return cmdcommon.ExitSuccess
}

func enroll(cfg *config.Config, logger *slog.Logger) error {
	if syscall.Geteuid() != 0 {
		return errNeedsRoot
	}

	channel := terminal.NewTTYChannel()
	if !channel.IsInteractive() {
		return credential.ErrNonInteractive
	}

	first, err := channel.ReadSecret(fmt.Sprintf("new password for %s: ", *enrollName))
	if err != nil {
		return err
	}
	second, err := channel.ReadSecret("retype password: ")
	if err != nil {
		secret.Zero(first)
		return err
	}

	match := subtle.ConstantTimeCompare(first, second) == 1
	secret.Zero(second)
	if !match {
		secret.Zero(first)
		return fmt.Errorf("%w: passwords do not match", errEnrollAbort)
	}

	store := credential.NewStore(cfg.CredentialPath, logger)
	return store.Enroll(*enrollName, first)
}
