package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/pkg/profile"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve <profile.yaml>",
	Short: "Publish the GATT services of a profile",
	Long: `Publish the GATT services declared in a YAML profile until interrupted.

Every service is built and registered in order; the first failure withdraws
what was already published. On Ctrl+C all services are removed.

Example profile:

  name: battery
  services:
    - uuid: 180F
      primary: true
      data: [80]
      properties: read,notify
      permissions: readable`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

var (
	serveDuration time.Duration
	serveFormat   string
)

func init() {
	serveCmd.Flags().DurationVarP(&serveDuration, "duration", "d", 0, "Stop serving after this long (0 for until Ctrl+C)")
	serveCmd.Flags().StringVarP(&serveFormat, "format", "f", "table", "Output format of the published services (table, json)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := validateFormat(serveFormat); err != nil {
		return err
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	prof, err := profile.Load(args[0])
	if err != nil {
		return err
	}
	services, err := prof.Build()
	if err != nil {
		return fmt.Errorf("invalid profile %s: %w", args[0], err)
	}
	if len(services) == 0 {
		return fmt.Errorf("%s: %w", args[0], ErrNoServices)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	out := cmd.OutOrStdout()
	sess := openSession(cfg, logger)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close session")
		}
	}()

	if err := sess.RegisterAll(services); err != nil {
		if rmErr := sess.Registry().RemoveAll(); rmErr != nil {
			logger.WithError(rmErr).Warn("Failed to withdraw partially published profile")
		}
		return fmt.Errorf("failed to publish profile: %w", err)
	}

	name := prof.Name
	if name == "" {
		name = args[0]
	}
	fmt.Fprintf(out, "Serving %d services from %s\n", sess.Registry().Len(), name)
	if err := displayServices(out, sess.Registry().Services(), serveFormat); err != nil {
		return err
	}

	ctx, cancel := interruptContext(cmd.Context(), out, serveDuration)
	defer cancel()
	<-ctx.Done()

	if err := sess.Registry().RemoveAll(); err != nil {
		return fmt.Errorf("failed to withdraw services: %w", err)
	}
	fmt.Fprintln(out, "Services withdrawn")
	return nil
}

func validateFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("%w '%s': must be one of [table json]", ErrInvalidFormat, format)
	}
}

func displayServices(w io.Writer, services []*gatt.Service, format string) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(services)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERVICE\tCHARACTERISTIC\tPROPERTIES\tPERMISSIONS\tDESCRIPTORS")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, svc := range services {
		fmt.Fprintf(tw, "%s\t\t\t\t\n", attributeLabel(svc.UUID(), svc.KnownName()))
		for _, c := range svc.Characteristics() {
			descs := make([]string, 0, len(c.Descriptors()))
			for _, d := range c.Descriptors() {
				descs = append(descs, d.UUID().String())
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s\n",
				attributeLabel(c.UUID(), c.KnownName()), c.Properties(), c.Permissions(), strings.Join(descs, ","))
		}
	}
	return tw.Flush()
}

func attributeLabel(uuid gatt.UUID, name string) string {
	if name == "" {
		return uuid.String()
	}
	return fmt.Sprintf("%s (%s)", uuid, name)
}
