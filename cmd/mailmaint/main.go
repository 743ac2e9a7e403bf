package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/mailmaint/internal/config"
	cp "github.com/dropDatabas3/mailmaint/internal/controlplane"
	"github.com/dropDatabas3/mailmaint/internal/controlplane/httpapi"
	statushttp "github.com/dropDatabas3/mailmaint/internal/http"
	"github.com/dropDatabas3/mailmaint/internal/metrics"
	"github.com/dropDatabas3/mailmaint/internal/notify"
	"github.com/dropDatabas3/mailmaint/internal/observability/logger"
	"github.com/dropDatabas3/mailmaint/internal/progress"
	"github.com/dropDatabas3/mailmaint/internal/recordstore"
	"github.com/dropDatabas3/mailmaint/internal/security/secretbox"
	"github.com/dropDatabas3/mailmaint/internal/sequencer"
	"github.com/dropDatabas3/mailmaint/internal/util"
)

const version = "1.2.0"

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// appCtx agrupa lo que cada subcomando necesita ya armado.
type appCtx struct {
	cfg    *config.Config
	runner *sequencer.Runner
	store  recordstore.Store
	mem    *progress.MemorySink
}

func main() {
	var (
		cfgPath         = envOr("MAILMAINT_CONFIG", "config.yaml")
		envFile         = ".env"
		logLevel        string
		requester       string
		pollInterval    time.Duration
		maxPollAttempts int
	)

	var app *appCtx

	root := &cobra.Command{
		Use:           "mailmaint",
		Short:         "Secuenciador de modo mantenimiento para nodos de correo en cluster",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "Ruta del config YAML (env MAILMAINT_CONFIG)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Nivel de log: debug|info|warn|error (pisa config)")
	root.PersistentFlags().StringVar(&requester, "requester", "", "Tag de requester para las llamadas admin (pisa config)")
	root.PersistentFlags().DurationVar(&pollInterval, "poll-interval", 0, "Intervalo fijo del poll de quiescencia (pisa config)")
	root.PersistentFlags().IntVar(&maxPollAttempts, "max-poll-attempts", -1, "Tope de intentos de poll; 0 = ilimitado (pisa config)")

	// setup arma config+logger+cliente. Los subcomandos que no tocan el
	// control plane (encrypt) no lo usan.
	setup := func(cmd *cobra.Command, needCP bool) error {
		// .env es opcional: en operación el entorno viene del service manager
		if fileExists(envFile) {
			_ = godotenv.Load(envFile)
		}

		path := cfgPath
		if !fileExists(path) {
			path = "" // correr con defaults + env
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if requester != "" {
			cfg.Maintenance.Requester = requester
		}
		if cmd.Flags().Changed("poll-interval") {
			cfg.Maintenance.PollInterval = pollInterval.String()
		}
		if maxPollAttempts >= 0 {
			cfg.Maintenance.MaxPollAttempts = maxPollAttempts
		}

		logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.Log.Level,
			ServiceName: "mailmaint",
			Version:     version,
		})

		app = &appCtx{cfg: cfg, mem: &progress.MemorySink{}}

		if needCP {
			secret, err := cfg.ControlPlaneSecret()
			if err != nil {
				return err
			}
			client, err := httpapi.New(httpapi.Options{
				BaseURL:   cfg.ControlPlane.BaseURL,
				Secret:    secret,
				Requester: cfg.Maintenance.Requester,
				Timeout:   config.Dur(cfg.ControlPlane.Timeout),
				TokenTTL:  config.Dur(cfg.ControlPlane.TokenTTL),
			})
			if err != nil {
				return err
			}
			logger.L().Debug("control plane client ready",
				logger.String("base_url", cfg.ControlPlane.BaseURL),
				logger.String("secret", util.MaskSecret(secret)),
			)

			if err := metrics.Register(nil); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}
			app.runner = &sequencer.Runner{
				CP: client,
				Sink: progress.Multi(
					&progress.ConsoleSink{W: os.Stdout},
					&progress.ZapSink{},
					metrics.Sink{},
					app.mem,
				),
				Requester:       cfg.Maintenance.Requester,
				PollInterval:    config.Dur(cfg.Maintenance.PollInterval),
				MaxPollAttempts: cfg.Maintenance.MaxPollAttempts,
			}
		}

		store, err := recordstore.Open(cmd.Context(), recordstore.Options{
			Kind:          cfg.Records.Kind,
			FSDir:         cfg.Records.FS.Dir,
			RedisAddr:     cfg.Records.Redis.Addr,
			RedisDB:       cfg.Records.Redis.DB,
			RedisPrefix:   cfg.Records.Redis.Prefix,
			PostgresDSN:   cfg.Records.Postgres.DSN,
			EtcdEndpoints: cfg.Records.Etcd.Endpoints,
			EtcdPrefix:    cfg.Records.Etcd.Prefix,
		})
		if err != nil {
			return fmt.Errorf("open record store: %w", err)
		}
		app.store = store
		return nil
	}

	// ---- enter ----
	var enterPartner string
	var enterDryRun bool
	enterCmd := &cobra.Command{
		Use:   "enter <server>",
		Short: "Poner un nodo en modo mantenimiento",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, !enterDryRun)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]
			if enterDryRun {
				r := &sequencer.Runner{}
				node := &cp.ServerInfo{Name: identity, FQDN: identity}
				var partner *cp.ServerInfo
				if enterPartner != "" {
					partner = &cp.ServerInfo{Name: enterPartner, FQDN: enterPartner}
				}
				printPlan(r.EnterPlan(node, partner))
				return nil
			}

			ctx := runCtx(cmd)
			node, err := app.runner.Resolve(ctx, identity)
			if err != nil {
				return err
			}
			var partner *cp.ServerInfo
			if enterPartner != "" {
				if partner, err = app.runner.Resolve(ctx, enterPartner); err != nil {
					return err
				}
			}

			out := runWithStatus(ctx, app, app.runner.EnterPlan(node, partner))
			metrics.ObservePlan(out.Plan, out.OK(), out.Took)
			notifyIfEnabled(app.cfg, out)

			// Hand-off SIEMPRE por consola, haya store o no: el operador es
			// quien carga el valor al hacer exit.
			if out.Record != nil && out.Record.Policy != "" {
				fmt.Printf("\nPre-maintenance activation policy for %s: %s\n", node.Name, out.Record.Policy)
				fmt.Println("Keep this value: pass it to 'mailmaint exit --policy' to restore it.")
				if app.store != nil {
					if err := app.store.Save(ctx, out.Record); err != nil {
						logger.L().Warn("record store save failed", logger.Err(err))
					} else {
						fmt.Println("(also saved to the configured record store)")
					}
				}
			}
			if !out.OK() {
				return out.Err
			}
			fmt.Printf("\n%s is now in maintenance mode.\n", node.Name)
			return nil
		},
	}
	enterCmd.Flags().StringVar(&enterPartner, "partner", "", "Nodo destino para redirigir mensajes en vuelo (opcional)")
	enterCmd.Flags().BoolVar(&enterDryRun, "dry-run", false, "Imprimir el plan sin tocar el control plane")

	// ---- exit ----
	var exitPolicy string
	var exitDryRun bool
	exitCmd := &cobra.Command{
		Use:   "exit <server>",
		Short: "Sacar un nodo de modo mantenimiento",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd, !exitDryRun)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			identity := args[0]

			if exitPolicy != "" {
				if _, ok := cp.ParseActivationPolicy(exitPolicy); !ok {
					return fmt.Errorf("--policy %q inválida (Blocked|IntrasiteOnly|Unrestricted)", exitPolicy)
				}
			}
			if exitDryRun {
				r := &sequencer.Runner{}
				node := &cp.ServerInfo{Name: identity, FQDN: identity}
				printPlan(r.ExitPlan(node, restorePolicy(exitPolicy, nil)))
				return nil
			}

			ctx := runCtx(cmd)
			node, err := app.runner.Resolve(ctx, identity)
			if err != nil {
				return err
			}

			// Precedencia: flag > record guardado > Unrestricted.
			var stored *sequencer.MaintenanceRecord
			if app.store != nil {
				rec, err := app.store.Get(ctx, node.Name)
				switch {
				case err == nil:
					stored = rec
				case errors.Is(err, recordstore.ErrNotFound):
				default:
					logger.L().Warn("record store get failed", logger.Err(err))
				}
			}
			restore := restorePolicy(exitPolicy, stored)
			fmt.Printf("Restoring activation policy: %s\n", restore)

			out := runWithStatus(ctx, app, app.runner.ExitPlan(node, restore))
			metrics.ObservePlan(out.Plan, out.OK(), out.Took)
			notifyIfEnabled(app.cfg, out)
			if !out.OK() {
				return out.Err
			}
			if app.store != nil && stored != nil {
				if err := app.store.Delete(ctx, node.Name); err != nil {
					logger.L().Warn("record store delete failed", logger.Err(err))
				}
			}
			fmt.Printf("\n%s is back in service.\n", node.Name)
			return nil
		},
	}
	exitCmd.Flags().StringVar(&exitPolicy, "policy", "", "Política de auto-activación a restaurar (default: record guardado o Unrestricted)")
	exitCmd.Flags().BoolVar(&exitDryRun, "dry-run", false, "Imprimir el plan sin tocar el control plane")

	// ---- record ----
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Inspeccionar/borrar records de mantenimiento guardados",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := setup(cmd, false); err != nil {
				return err
			}
			if app.store == nil {
				return fmt.Errorf("no hay record store configurado (records.kind=none)")
			}
			return nil
		},
	}
	recordGetCmd := &cobra.Command{
		Use:   "get <server>",
		Short: "Mostrar el record guardado de un servidor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := app.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("server:   %s\npolicy:   %s\npartner:  %s\nrun_id:   %s\nsaved_at: %s\n",
				rec.Server, rec.Policy, rec.Partner, rec.RunID, rec.SavedAt.Format(time.RFC3339))
			return nil
		},
	}
	recordRmCmd := &cobra.Command{
		Use:   "rm <server>",
		Short: "Borrar el record guardado de un servidor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.store.Delete(cmd.Context(), args[0])
		},
	}
	recordCmd.AddCommand(recordGetCmd, recordRmCmd)

	// ---- encrypt ----
	encryptCmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Cifrar un secreto para el config (lee de stdin, usa SECRETBOX_MASTER_KEY)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if fileExists(envFile) {
				_ = godotenv.Load(envFile)
			}
			sc := bufio.NewScanner(os.Stdin)
			if !sc.Scan() {
				return fmt.Errorf("nada que cifrar en stdin")
			}
			ct, err := secretbox.Encrypt(strings.TrimSpace(sc.Text()))
			if err != nil {
				return err
			}
			fmt.Println(ct)
			return nil
		},
	}

	root.AddCommand(enterCmd, exitCmd, recordCmd, encryptCmd)

	defer logger.Sync()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
		logger.Sync()
		os.Exit(1)
	}
}

// runCtx deriva un contexto cancelable por SIGINT/SIGTERM: el paso en vuelo
// termina y el plan aborta limpio en el siguiente límite de paso.
func runCtx(cmd *cobra.Command) context.Context {
	ctx, _ := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// runWithStatus ejecuta el plan, levantando el status listener si está
// habilitado; el listener baja cuando el plan termina.
func runWithStatus(ctx context.Context, app *appCtx, plan *sequencer.Plan) sequencer.Outcome {
	if !app.cfg.Status.Enabled {
		return app.runner.Run(ctx, plan)
	}
	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv := &statushttp.StatusServer{Addr: app.cfg.Status.Addr, Sink: app.mem}
		if err := srv.Run(srvCtx); err != nil {
			logger.L().Warn("status listener error", logger.Err(err))
		}
	}()
	out := app.runner.Run(ctx, plan)
	cancel()
	<-done
	return out
}

func notifyIfEnabled(cfg *config.Config, out sequencer.Outcome) {
	if !cfg.Notify.Enabled || cfg.SMTP.Host == "" {
		return
	}
	pass, err := cfg.SMTPPassword()
	if err != nil {
		logger.L().Warn("smtp password", logger.Err(err))
		return
	}
	n := &notify.SMTPNotifier{
		Host:    cfg.SMTP.Host,
		Port:    cfg.SMTP.Port,
		From:    cfg.SMTP.From,
		User:    cfg.SMTP.Username,
		Pass:    pass,
		TLSMode: cfg.SMTP.TLS,
		To:      cfg.Notify.To,
	}
	if err := n.PlanFinished(out); err != nil {
		logger.L().Warn("notify", logger.Err(err))
	}
}

// restorePolicy resuelve la política del exit: flag > record > Unrestricted.
func restorePolicy(flag string, stored *sequencer.MaintenanceRecord) cp.ActivationPolicy {
	if flag != "" {
		p, _ := cp.ParseActivationPolicy(flag)
		return p
	}
	if stored != nil && stored.Policy != "" {
		return stored.Policy
	}
	return cp.PolicyUnrestricted
}

func printPlan(plan *sequencer.Plan) {
	fmt.Printf("Plan %s (dry run):\n", plan.Name)
	for i, s := range plan.Steps {
		fmt.Printf("  %d. [%s] %s\n", i+1, s.Class, s.Label)
	}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
