package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kavach/backend/internal/claims"
	"kavach/backend/internal/config"
	"kavach/backend/internal/firebase"
	"kavach/backend/internal/logger"
	"kavach/backend/internal/store"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatalf("set-admin: %v", err)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-admin",
		Short: "Set the admin custom claim on a Firebase user",
		Args:  cobra.NoArgs,
		// errors are reported once, by main
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New()
			if err != nil {
				return err
			}
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stdout, stderr)
		},
	}

	f := cmd.Flags()
	f.String("uid", config.DefaultUID, "target firebase uid")
	f.String("credentials", config.DefaultCredentialsFile, "service account JSON file path or gs://bucket/object")
	f.String("credentials-json", "", "raw service account JSON (prefer FIREBASE_SERVICE_ACCOUNT_JSON)")
	f.String("impersonate", "", "service account email to impersonate via IAM credentials")
	f.String("project-id", "", "firebase project id")
	f.Bool("revoke", false, "remove the admin claim instead of setting it")
	f.Bool("merge", false, "keep the user's other custom claims when granting")
	f.Bool("verify", false, "read the user back after writing and check the claim")
	f.Bool("dry-run", false, "print the claims that would be written without writing them")
	f.String("audit-collection", "", "firestore collection to write an audit entry to")
	f.Bool("sync-profile", false, "mirror the admin flag onto the user's profile document")
	f.String("profile-collection", store.ColUsers, "firestore collection holding user profiles")
	f.Duration("timeout", 0, "overall timeout, 0 for none")
	f.String("log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	f.String("log-format", "tint", "tint, text or json")

	return cmd
}

func run(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	logr, err := logger.New(stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := clients.Close(); err != nil {
			logr.Warn("failed to close clients", "error", err)
		}
	}()
	logr.Debug("firebase initialized",
		"source", clients.Source.String(),
		"projectId", clients.ProjectID,
		"operator", clients.Operator,
	)

	recorders, err := newRecorders(ctx, cfg, clients)
	if err != nil {
		return err
	}

	svc := claims.NewService(clients.Auth, logr, claims.Options{
		Merge:  cfg.Merge,
		Verify: cfg.Verify,
		DryRun: cfg.DryRun,
	}, recorders...)

	change, err := svc.SetAdmin(ctx, cfg.UID, !cfg.Revoke)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return err
	}

	fmt.Fprintln(stdout, message(change))
	return nil
}

func newRecorders(ctx context.Context, cfg config.Config, clients *firebase.Clients) ([]claims.Recorder, error) {
	// dry runs are never recorded
	if cfg.DryRun || !cfg.NeedsFirestore() {
		return nil, nil
	}
	fs, err := clients.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	st := store.New(fs)

	var recorders []claims.Recorder
	if cfg.AuditCollection != "" {
		r, err := st.AuditRecorder(cfg.AuditCollection, clients.ProjectID, clients.Operator)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, r)
	}
	if cfg.SyncProfile {
		r, err := st.ProfileRecorder(cfg.ProfileCollection)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, r)
	}
	return recorders, nil
}

func message(c *claims.Change) string {
	switch {
	case c.DryRun:
		return fmt.Sprintf("Dry run: would %s admin for %s, claims %v", c.Action, c.UID, map[string]interface{}(c.After))
	case c.Action == claims.ActionRevoke:
		return "Admin claim revoked!"
	}
	return "Admin claim set!"
}
