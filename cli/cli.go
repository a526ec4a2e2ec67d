// Package cli is the embeddable schema-management command line. An
// application registers its entity declarations and gets plan, apply and
// version commands that converge the live cluster on the declared metadata.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	gocql "github.com/apache/cassandra-gocql-driver/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cqlforge/cqlforge/catalog"
	"github.com/cqlforge/cqlforge/exec"
	"github.com/cqlforge/cqlforge/meta"
	"github.com/cqlforge/cqlforge/stmt"
)

// App describes the embedding application.
type App struct {
	Name     string
	Version  string
	Commit   string
	Date     string
	Entities []*meta.EntityDecl
}

// New builds the root command with plan, apply and version subcommands.
func New(app App) *cobra.Command {
	root := &cobra.Command{
		Use:           app.Name,
		Short:         "Schema management for " + app.Name,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlanCmd(app))
	root.AddCommand(newApplyCmd(app))
	root.AddCommand(newVersionCmd(app))
	return root
}

// Main runs the command and exits nonzero on failure.
func Main(app App) {
	if err := New(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPlanCmd(app App) *cobra.Command {
	var keys []string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the statements that would converge the live schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWithKeys(keys)
			if err != nil {
				return err
			}
			session, err := connect(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			plans, err := buildPlans(cmd.Context(), cfg, app, session)
			if err != nil {
				return err
			}
			for _, p := range plans {
				printPlan(cmd.OutOrStdout(), p.name, p.statements)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "keyspace key as name=value (repeatable)")
	return cmd
}

func newApplyCmd(app App) *cobra.Command {
	var keys []string
	var yes bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Execute the statements that converge the live schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWithKeys(keys)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Verbose)
			defer logger.Sync()

			session, err := connect(cfg)
			if err != nil {
				return err
			}
			defer session.Close()

			plans, err := buildPlans(cmd.Context(), cfg, app, session)
			if err != nil {
				return err
			}

			var total int
			for _, p := range plans {
				printPlan(cmd.OutOrStdout(), p.name, p.statements)
				total += len(p.statements)
			}
			if total == 0 {
				okColor.Fprintln(cmd.OutOrStdout(), "Nothing to apply.")
				return nil
			}

			if !yes && anyDestructive(plans) {
				confirmed := false
				prompt := &survey.Confirm{
					Message: "This plan drops live columns. Apply anyway?",
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					return fmt.Errorf("aborted")
				}
			}

			driver := exec.NewDriverSession(session, logger)
			options := map[string]any{"consistency": cfg.Cluster.Consistency}
			for _, p := range plans {
				for _, text := range p.statements {
					f := driver.Submit(cmd.Context(), exec.Statement{Text: text, Options: options})
					if _, err := f.Await(cmd.Context()); err != nil {
						failColor.Fprintf(cmd.OutOrStdout(), "failed: %s\n", text)
						return &exec.ExecutionError{Statement: text, Err: err}
					}
					okColor.Fprintf(cmd.OutOrStdout(), "applied: %s\n", text)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&keys, "key", "k", nil, "keyspace key as name=value (repeatable)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newVersionCmd(app App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", app.Name, app.Version)
			if app.Commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", app.Commit)
			}
			if app.Date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", app.Date)
			}
		},
	}
}

type entityPlan struct {
	name       string
	statements []string
}

func anyDestructive(plans []entityPlan) bool {
	for _, p := range plans {
		if destructive(p.statements) {
			return true
		}
	}
	return false
}

// buildPlans computes per-entity convergence statements. Each keyspace is
// checked once; an absent keyspace gets a creation statement ahead of the
// first entity that lives in it.
func buildPlans(ctx context.Context, cfg *Config, app App, session *gocql.Session) ([]entityPlan, error) {
	reader := catalog.NewSessionReader(session)
	checkedKeyspaces := make(map[string]bool)

	var plans []entityPlan
	for _, decl := range app.Entities {
		entity, err := meta.Resolve(decl)
		if err != nil {
			return nil, err
		}
		sctx := stmt.NewContext(entity)
		for k, v := range cfg.Keys {
			sctx.BindKeyspaceKey(k, v)
		}
		ks, err := sctx.KeyspaceName()
		if err != nil {
			return nil, err
		}

		var texts []string
		if !checkedKeyspaces[ks] {
			checkedKeyspaces[ks] = true
			exists, err := reader.KeyspaceExists(ctx, ks)
			if err != nil {
				return nil, err
			}
			if !exists {
				ck := stmt.NewCreateKeyspace(sctx).IfNotExists().WithReplication(cfg.Replication)
				created, err := ck.Compile()
				if err != nil {
					return nil, err
				}
				texts = append(texts, created...)
			}
		}

		entityTexts, err := planEntity(ctx, sctx, reader, entity)
		if err != nil {
			return nil, err
		}
		texts = append(texts, entityTexts...)
		plans = append(plans, entityPlan{name: entity.Name, statements: texts})
	}
	return plans, nil
}

// planEntity compiles full creation when every table is absent, otherwise
// per-table convergence. Composite-type entities always plan guarded
// creation since the column catalog cannot report their drift.
func planEntity(ctx context.Context, sctx *stmt.Context, reader catalog.Reader, entity *meta.Entity) ([]string, error) {
	if entity.UDT {
		return stmt.NewCreateSchema(sctx).IfNotExists().Compile()
	}

	alters := make([]*stmt.AlterTable, 0, len(entity.Tables))
	allAbsent := true
	for _, table := range entity.Tables {
		at, err := stmt.NewAlterTable(ctx, sctx, reader, table)
		if err != nil {
			return nil, err
		}
		if !at.TableAbsent() {
			allAbsent = false
		}
		alters = append(alters, at)
	}
	if allAbsent {
		// Full creation also covers embedded types, indexes and seed rows.
		return stmt.NewCreateSchema(sctx).IfNotExists().Compile()
	}

	var out []string
	for _, at := range alters {
		texts, err := at.Compile()
		if err != nil {
			return nil, err
		}
		out = append(out, texts...)
	}
	return out, nil
}

func loadWithKeys(pairs []string) (*Config, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Keys == nil {
		cfg.Keys = make(map[string]string)
	}
	for _, pair := range pairs {
		name, value, ok := cutPair(pair)
		if !ok {
			return nil, fmt.Errorf("invalid --key %q, want name=value", pair)
		}
		cfg.Keys[name] = value
	}
	return cfg, nil
}

func cutPair(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], i > 0
		}
	}
	return "", "", false
}

func connect(cfg *Config) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Cluster.Hosts...)
	if cfg.Cluster.Port > 0 {
		cluster.Port = cfg.Cluster.Port
	}
	if cfg.Cluster.Timeout > 0 {
		cluster.Timeout = cfg.Cluster.Timeout
	}
	if c, err := gocql.ParseConsistencyWrapper(cfg.Cluster.Consistency); err == nil {
		cluster.Consistency = c
	}
	if cfg.Cluster.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Cluster.Username,
			Password: cfg.Cluster.Password,
		}
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}
	return session, nil
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
