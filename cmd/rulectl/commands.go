package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/internal/service"
	"github.com/noah-isme/practice-rules-api/pkg/condition"
	"github.com/noah-isme/practice-rules-api/pkg/config"
	"github.com/noah-isme/practice-rules-api/pkg/versiongraph"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitError   = 2
)

// errInvalid marks a well-formed run that found problems in its input.
var errInvalid = errors.New("invalid input")

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalid):
		return exitInvalid
	default:
		return exitError
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rulectl",
		Short:         "Work with practice scheduling rules offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("output", "o", "yaml", "output format: yaml or json")

	root.AddCommand(newValidateCmd(), newEvaluateCmd(), newGraphCmd(), newDurationCmd(), newTokenCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a rules file and list every problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadRules(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if problems := doc.check(); len(problems) > 0 {
				for _, problem := range problems {
					fmt.Fprintln(out, problem)
				}
				return fmt.Errorf("%w: %d problem(s)", errInvalid, len(problems))
			}
			fmt.Fprintf(out, "%d rule(s) valid\n", len(doc.Rules))
			return nil
		},
	}
}

func newEvaluateCmd() *cobra.Command {
	var slotPath, appointmentsPath, contextPath string
	cmd := &cobra.Command{
		Use:   "evaluate FILE",
		Short: "Decide whether a slot may be booked under a rules file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadRules(args[0])
			if err != nil {
				return err
			}
			if problems := doc.check(); len(problems) > 0 {
				return fmt.Errorf("%w: %s", errInvalid, strings.Join(problems, "; "))
			}
			rules, err := doc.compile()
			if err != nil {
				return err
			}

			var slot condition.Slot
			if err := readYAML(slotPath, &slot); err != nil {
				return err
			}
			var appointments []condition.Appointment
			if appointmentsPath != "" {
				if err := readYAML(appointmentsPath, &appointments); err != nil {
					return err
				}
			}
			evalCtx := condition.Context{}
			if contextPath != "" {
				if err := readYAML(contextPath, &evalCtx); err != nil {
					return err
				}
			}

			decision, err := condition.EvaluateRules(rules, slot, appointments, evalCtx)
			if err != nil {
				return err
			}
			return render(cmd, decision)
		},
	}
	cmd.Flags().StringVar(&slotPath, "slot", "", "YAML or JSON file describing the slot")
	cmd.Flags().StringVar(&appointmentsPath, "appointments", "", "YAML or JSON list of existing appointments")
	cmd.Flags().StringVar(&contextPath, "context", "", "YAML or JSON map of context attributes")
	_ = cmd.MarkFlagRequired("slot")
	return cmd
}

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph FILE",
		Short: "Lay out a rule set history as a commit graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, palette, err := loadHistory(args[0])
			if err != nil {
				return err
			}
			return render(cmd, versiongraph.Build(nodes, palette))
		},
	}
}

func newDurationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duration TEXT",
		Short: "Parse a duration such as 1h30min and print milliseconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := condition.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("%w: %v", errInvalid, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.Milliseconds())
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var secret, issuer, userID, role string
	var practices []string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for a local server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				secret = cfg.JWT.Secret
				if issuer == "" {
					issuer = cfg.JWT.Issuer
				}
			}
			userRole := models.UserRole(strings.ToUpper(role))
			switch userRole {
			case models.RoleAdmin, models.RoleManager, models.RoleStaff:
			default:
				return fmt.Errorf("%w: unknown role %q", errInvalid, role)
			}
			auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: secret, Issuer: issuer})
			token, err := auth.IssueToken(userID, userRole, practices, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "token issuer (defaults to JWT_ISSUER)")
	cmd.Flags().StringVar(&userID, "user", "rulectl", "user id")
	cmd.Flags().StringVar(&role, "role", string(models.RoleManager), "ADMIN, MANAGER or STAFF")
	cmd.Flags().StringSliceVar(&practices, "practice", nil, "practice id the token covers (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func render(cmd *cobra.Command, value interface{}) error {
	format, _ := cmd.Flags().GetString("output")
	return write(cmd.OutOrStdout(), format, value)
}

func write(out io.Writer, format string, value interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "yaml", "":
		// Round-trip through JSON so field names follow the API's json tags.
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown output format %q", errInvalid, format)
	}
}
