// Command anagrafe is the operator client for the person registry: look up,
// create, update and delete person records, and browse or search the whole
// registry. All domain rules live in internal/controller; this binary only
// parses flags and renders controller state.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anagrafe/internal/audit"
	"anagrafe/internal/controller"
	"anagrafe/internal/controller/metrics"
	"anagrafe/internal/domain"
	"anagrafe/internal/platform/config"
	"anagrafe/internal/platform/logger"
	"anagrafe/internal/platform/redis"
	"anagrafe/internal/registry"
	"anagrafe/internal/registry/cache"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath  string
		registryURL string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:           "anagrafe",
		Short:         "Person registry operator client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry base URL (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	build := func() (*controller.Controller, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if registryURL != "" {
			cfg.RegistryURL = registryURL
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return newController(cfg)
	}

	cmd.AddCommand(
		searchCmd(build),
		findCmd(build),
		listCmd(build),
		createCmd(build),
		updateCmd(build),
		deleteCmd(build),
	)
	return cmd
}

// newController wires the registry client, the optional Redis read cache and
// the controller together.
func newController(cfg config.Config) (*controller.Controller, error) {
	log := logger.New(cfg.LogLevel)

	var api registry.API = registry.NewClient(cfg.RegistryURL, registry.WithLogger(log))

	if cfg.RedisURL != "" {
		rc, err := redis.New(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		api = cache.Wrap(api, cache.NewRedisStore(rc.Client, cfg.CacheTTL), log)
	}

	return controller.New(api,
		controller.WithLogger(log),
		controller.WithMetrics(metrics.New()),
		controller.WithAudit(audit.NewLogPublisher(log)),
	), nil
}

func searchCmd(build func() (*controller.Controller, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "search <taxcode>",
		Short: "Look up one person by tax code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := build()
			if err != nil {
				return err
			}
			st := ctrl.SearchByTaxCode(cmd.Context(), args[0])
			if st.Kind == controller.KindError {
				return errors.New(st.Message)
			}
			if p, loaded := ctrl.Active(); loaded {
				printPerson(cmd, p)
			}
			return nil
		},
	}
}

func findCmd(build func() (*controller.Controller, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query>",
		Short: "Search persons by name or surname",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := build()
			if err != nil {
				return err
			}
			st := ctrl.SearchByName(cmd.Context(), args[0])
			if st.Kind == controller.KindError {
				return errors.New(st.Message)
			}
			if st.Message != "" {
				cmd.Println(st.Message)
			}
			printRows(cmd, ctrl.Results())
			return nil
		},
	}
}

func listCmd(build func() (*controller.Controller, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every person in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := build()
			if err != nil {
				return err
			}
			st := ctrl.LoadAll(cmd.Context())
			if st.Kind == controller.KindError {
				return errors.New(st.Message)
			}
			printRows(cmd, ctrl.Listing())
			return nil
		},
	}
}

func createCmd(build func() (*controller.Controller, error)) *cobra.Command {
	var form controller.CreateForm

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new person record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := build()
			if err != nil {
				return err
			}
			st := ctrl.CreatePerson(cmd.Context(), form)
			if st.Kind == controller.KindError {
				return errors.New(st.Message)
			}
			cmd.Println(st.Message)
			if p, loaded := ctrl.Active(); loaded {
				printPerson(cmd, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&form.TaxCode, "tax-code", "", "tax code, 16 letters/numbers (required)")
	cmd.Flags().StringVar(&form.Name, "name", "", "first name")
	cmd.Flags().StringVar(&form.Surname, "surname", "", "surname")
	cmd.Flags().StringVar(&form.Street, "street", "", "street")
	cmd.Flags().StringVar(&form.StreetNo, "street-no", "", "street number")
	cmd.Flags().StringVar(&form.City, "city", "", "city")
	cmd.Flags().StringVar(&form.Province, "province", "", "province, 2 letters (required)")
	cmd.Flags().StringVar(&form.Country, "country", "", "country")
	_ = cmd.MarkFlagRequired("tax-code")
	_ = cmd.MarkFlagRequired("province")
	return cmd
}

func updateCmd(build func() (*controller.Controller, error)) *cobra.Command {
	var (
		name, surname           string
		street, streetNo        string
		city, province, country string
	)

	cmd := &cobra.Command{
		Use:   "update <taxcode>",
		Short: "Update the mutable fields of a person record",
		Long: `Update loads the record, applies the given flags to its edit buffer and
persists the result. Fields without a flag keep their current value. The tax
code identifies the record and can never be changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := build()
			if err != nil {
				return err
			}
			if st := ctrl.SearchByTaxCode(cmd.Context(), args[0]); st.Kind == controller.KindError {
				return errors.New(st.Message)
			}

			buf := ctrl.Buffer()
			apply := map[string]func(){
				"name":      func() { buf.Name = name },
				"surname":   func() { buf.Surname = surname },
				"street":    func() { buf.Street = street },
				"street-no": func() { buf.StreetNo = streetNo },
				"city":      func() { buf.City = city },
				"province":  func() { buf.Province = province },
				"country":   func() { buf.Country = country },
			}
			for flag, set := range apply {
				if cmd.Flags().Changed(flag) {
					set()
				}
			}

			st := ctrl.UpdatePerson(cmd.Context(), buf)
			if st.Kind == controller.KindError {
				return errors.New(st.Message)
			}
			cmd.Println(st.Message)
			if p, loaded := ctrl.Active(); loaded {
				printPerson(cmd, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "first name")
	cmd.Flags().StringVar(&surname, "surname", "", "surname")
	cmd.Flags().StringVar(&street, "street", "", "street")
	cmd.Flags().StringVar(&streetNo, "street-no", "", "street number")
	cmd.Flags().StringVar(&city, "city", "", "city")
	cmd.Flags().StringVar(&province, "province", "", "province, 2 letters")
	cmd.Flags().StringVar(&country, "country", "", "country")
	return cmd
}

func deleteCmd(build func() (*controller.Controller, error)) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete <taxcode>",
		Short: "Delete a person record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := build()
			if err != nil {
				return err
			}
			if st := ctrl.SearchByTaxCode(cmd.Context(), args[0]); st.Kind == controller.KindError {
				return errors.New(st.Message)
			}
			if confirmed {
				if st := ctrl.ArmDelete(); st.Kind == controller.KindError {
					return errors.New(st.Message)
				}
			}
			st := ctrl.DeletePerson(cmd.Context())
			if st.Kind == controller.KindError {
				if !confirmed {
					return fmt.Errorf("%s (re-run with --yes)", st.Message)
				}
				return errors.New(st.Message)
			}
			cmd.Println(st.Message)
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the irreversible delete")
	return cmd
}

func printPerson(cmd *cobra.Command, p domain.Person) {
	cmd.Printf("%s  %s %s\n", p.TaxCode, p.Name, p.Surname)
	a := p.Address
	cmd.Printf("    %s %s, %s (%s), %s\n", a.Street, a.StreetNo, a.City, a.Province, a.Country)
}

func printRows(cmd *cobra.Command, persons []domain.Person) {
	for _, p := range persons {
		cmd.Printf("%s  %s %s  %s (%s)\n", p.TaxCode, p.Name, p.Surname, p.Address.City, p.Address.Province)
	}
}
