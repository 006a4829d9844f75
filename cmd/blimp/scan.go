package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/spf13/cobra"
	"github.com/srg/blimp/internal/gatt"
	"github.com/srg/blimp/pkg/session"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE peripherals",
	Long: `Scan for and display Bluetooth Low Energy peripherals in the vicinity.

This command acts as a central and displays every discovered peripheral with
its name, address, RSSI and advertised services.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration        time.Duration
	scanFormat          string
	scanServices        []string
	scanAllowDuplicates bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for until Ctrl+C)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().StringSliceVarP(&scanServices, "services", "s", nil, "Only report peripherals advertising these service UUIDs")
	scanCmd.Flags().BoolVar(&scanAllowDuplicates, "allow-duplicates", false, "Report every advertisement, not only the first per peripheral")
}

// scanEntry is a discovered peripheral with the time it was last seen.
type scanEntry struct {
	Info     gatt.PeripheralInfo
	LastSeen time.Time
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := validateFormat(scanFormat); err != nil {
		return err
	}

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	opts := gatt.ScanOptions{
		Duration:        scanDuration,
		AllowDuplicates: scanAllowDuplicates,
	}
	if !cmd.Flags().Changed("duration") {
		opts.Duration = cfg.ScanDuration
	}
	if !cmd.Flags().Changed("allow-duplicates") {
		opts.AllowDuplicates = cfg.AllowDuplicates
	}
	for _, s := range scanServices {
		u, err := gatt.ParseUUID(s)
		if err != nil {
			return fmt.Errorf("invalid service UUID: %w", err)
		}
		opts.Services = append(opts.Services, u)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	sess := openSession(cfg, logger)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close session")
		}
	}()

	scanner, ok := sess.Platform().(gatt.Scanner)
	if !ok {
		return session.ErrScanUnsupported
	}

	ctx, cancel := interruptContext(cmd.Context(), cmd.ErrOrStderr(), 0)
	defer cancel()

	var progress *ProgressPrinter
	if opts.Duration > 0 {
		progress = NewCountdownProgressPrinter(cmd.ErrOrStderr(), "Scanning for BLE peripherals", "Scanning", opts.Duration)
	} else {
		progress = NewProgressPrinter(cmd.ErrOrStderr(), "Scanning for BLE peripherals", "Scanning")
	}
	progress.Start()

	entries := hashmap.New[string, scanEntry]()
	err = scanner.Scan(ctx, opts, func(info gatt.PeripheralInfo) {
		entries.Set(info.Address, scanEntry{Info: info, LastSeen: time.Now()})
	})
	progress.Stop()
	if err != nil {
		logger.WithError(err).Error("scan failed")
		return err
	}

	list := make([]scanEntry, 0, entries.Len())
	entries.Range(func(_ string, e scanEntry) bool {
		list = append(list, e)
		return true
	})
	return displayPeripherals(cmd.OutOrStdout(), list, scanFormat)
}

func displayPeripherals(w io.Writer, entries []scanEntry, format string) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No peripherals discovered")
		return nil
	}

	// Strongest signal first, then by address for a stable order
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Info.RSSI != entries[j].Info.RSSI {
			return entries[i].Info.RSSI > entries[j].Info.RSSI
		}
		return entries[i].Info.Address < entries[j].Info.Address
	})

	if format == "json" {
		return displayPeripheralsJSON(w, entries)
	}
	return displayPeripheralsTable(w, entries)
}

func displayPeripheralsTable(w io.Writer, entries []scanEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tADDRESS\tRSSI\tSERVICES\tLAST SEEN")
	fmt.Fprintln(tw, strings.Repeat("-", 80))

	for _, e := range entries {
		name := e.Info.Name
		if name == "" {
			name = e.Info.AdvertisementData.LocalName
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		services := strings.Join(uuidStrings(e.Info.AdvertisementData.ServiceUUIDs), ",")
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		lastSeen := time.Since(e.LastSeen).Truncate(time.Second)
		fmt.Fprintf(tw, "%s\t%s\t%d dBm\t%s\t%s ago\n", name, e.Info.Address, e.Info.RSSI, services, lastSeen)
	}

	return tw.Flush()
}

type peripheralJSON struct {
	Address          string            `json:"address"`
	Name             string            `json:"name,omitempty"`
	RSSI             int               `json:"rssi"`
	Connectable      bool              `json:"connectable"`
	TxPowerLevel     int               `json:"txPowerLevel,omitempty"`
	Services         []string          `json:"services,omitempty"`
	ServiceData      map[string][]byte `json:"serviceData,omitempty"`
	ManufacturerData []byte            `json:"manufacturerData,omitempty"`
	LastSeen         time.Time         `json:"lastSeen"`
}

func displayPeripheralsJSON(w io.Writer, entries []scanEntry) error {
	list := make([]peripheralJSON, 0, len(entries))
	for _, e := range entries {
		ad := e.Info.AdvertisementData
		p := peripheralJSON{
			Address:          e.Info.Address,
			Name:             e.Info.Name,
			RSSI:             e.Info.RSSI,
			Connectable:      ad.Connectable,
			TxPowerLevel:     ad.TxPowerLevel,
			Services:         uuidStrings(ad.ServiceUUIDs),
			ManufacturerData: ad.ManufacturerData,
			LastSeen:         e.LastSeen,
		}
		if len(ad.ServiceData) > 0 {
			p.ServiceData = make(map[string][]byte, len(ad.ServiceData))
			for u, data := range ad.ServiceData {
				p.ServiceData[u.String()] = data
			}
		}
		list = append(list, p)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(list)
}

func uuidStrings(uuids []gatt.UUID) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = u.String()
	}
	return out
}
