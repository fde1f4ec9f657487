package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mmiyara/govee-remote/internal/pkg/config"
	"github.com/mmiyara/govee-remote/internal/pkg/goveeapi"
	"github.com/mmiyara/govee-remote/internal/pkg/remote"
)

var _discoverCmdOpts struct {
	apiKey string
	asJSON bool
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List Govee devices, their capabilities and the commands they would expose",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doDiscover(cmd.Context()); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkRequiredFlags("govee.api-key")
	},
}

func init() {
	discoverCmd.Flags().StringVar(&_discoverCmdOpts.apiKey, "api-key", "", "Govee cloud API key")
	discoverCmd.Flags().BoolVar(&_discoverCmdOpts.asJSON, "json", false, "Return the report as JSON")

	errPanic(viper.GetViper().BindPFlag("govee.api-key", discoverCmd.Flags().Lookup("api-key")))
	errPanic(viper.GetViper().BindPFlag("discover.json", discoverCmd.Flags().Lookup("json")))

	rootCmd.AddCommand(discoverCmd)
}

type discoveryReport struct {
	Devices  map[string]config.DeviceRecord `json:"devices"`
	Commands []string                       `json:"commands"`
}

func doDiscover(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client := goveeapi.NewLiveClient().
		WithAPIKey(viper.GetString("govee.api-key")).
		WithTimeout(time.Second * 15)

	devices, err := client.Devices(ctx)
	if err != nil {
		return err
	}

	records := make(map[string]config.DeviceRecord, len(devices))
	for _, dev := range devices {
		records[dev.ID] = config.RecordFromDevice(dev)
	}

	entries := remote.SortedEntries(records)
	commands := remote.GenerateCommands(entries)

	if viper.GetBool("discover.json") {
		b, err := json.MarshalIndent(discoveryReport{Devices: records, Commands: commands}, "", "    ")
		if err != nil {
			return err
		}

		fmt.Println(string(b))
		return nil
	}

	fmt.Printf("Found %d devices\n", len(entries))
	for _, e := range entries {
		printDeviceReport(e)
	}

	fmt.Printf("\n%d commands:\n", len(commands))
	for _, c := range commands {
		fmt.Printf("  %s\n", c)
	}

	return nil
}

func printDeviceReport(e remote.DeviceEntry) {
	rec := e.Record

	fmt.Printf("\n%s (%s)\n", rec.Name, e.ID)
	fmt.Printf("  SKU:  %s\n", rec.SKU)
	fmt.Printf("  Type: %s (%s)\n", rec.Type, rec.APIType)

	var features []string
	if rec.SupportsPower {
		features = append(features, "power")
	}
	if rec.SupportsBrightness {
		features = append(features, "brightness")
	}
	if rec.SupportsColor {
		features = append(features, "color")
	}
	if rec.SupportsColorTemp {
		features = append(features, "color-temp")
	}
	if rec.SupportsTemperature {
		features = append(features, "temperature")
	}
	if rec.SupportsWorkMode {
		features = append(features, "work-mode")
	}
	if rec.SupportsScenes {
		features = append(features, "scenes")
	}
	if rec.SupportsMusic {
		features = append(features, "music")
	}
	if rec.SupportsGradient {
		features = append(features, "gradient")
	}
	if rec.SupportsDreamview {
		features = append(features, "dreamview")
	}
	if len(features) > 0 {
		fmt.Printf("  Features: %s\n", strings.Join(features, ", "))
	}

	if r := rec.BrightnessRange; r != nil {
		fmt.Printf("  Brightness range: %d-%d\n", r[0], r[1])
	}
	if r := rec.ColorTempRange; r != nil {
		fmt.Printf("  Color temperature range: %d-%dK\n", r[0], r[1])
	}
	if r := rec.TemperatureRange; r != nil {
		fmt.Printf("  Temperature range: %d-%d\n", r[0], r[1])
	}

	if len(rec.WorkModes) > 0 {
		names := make([]string, 0, len(rec.WorkModes))
		for _, m := range rec.WorkModes {
			names = append(names, m.Name)
		}
		fmt.Printf("  Work modes: %s\n", strings.Join(names, ", "))
	}
	if len(rec.Scenes) > 0 {
		fmt.Printf("  Scenes: %d\n", len(rec.Scenes))
	}
}
