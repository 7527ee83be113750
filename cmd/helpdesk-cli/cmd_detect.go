package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"jan-server/services/helpdesk-api/internal/domain/commitment"
	"jan-server/services/helpdesk-api/internal/domain/lexicon"
)

var detectCmd = &cobra.Command{
	Use:   "detect <text>",
	Short: "Run the commitment detector on text",
	Long: `Print the commitment detector's result for the given text as YAML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().String("timezone", "", "IANA timezone for deadlines (default: HELPDESK_TIMEZONE)")
	detectCmd.Flags().String("now", "", "Reference time in RFC3339 (default: current time)")
}

type detectOutput struct {
	commitment.Detection `yaml:",inline"`
	ReminderAt           *time.Time `yaml:"reminder_at,omitempty"`
	Priority             string     `yaml:"priority,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadEnv()
	if err != nil {
		return err
	}
	tz, _ := cmd.Flags().GetString("timezone")
	if tz == "" {
		tz = cfg.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	now := time.Now().In(loc)
	if raw, _ := cmd.Flags().GetString("now"); raw != "" {
		now, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid --now: %w", err)
		}
	}

	detector, err := commitment.NewDetector(lexicon.Default(), loc)
	if err != nil {
		return err
	}
	det := detector.Detect(strings.Join(args, " "), now)

	out := detectOutput{Detection: det}
	if det.HasCommitment {
		reminder := det.ReminderAt()
		out.ReminderAt = &reminder
		out.Priority = string(det.PriorityAt(now))
	}
	encoded, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode detection: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(encoded)
	return err
}
