package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keshon/autoresponder/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the policy file, then print a summary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.cfg.Validate(); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "[WARN] configuration:", err)
		}
		printSummary(cmd.OutOrStdout(), a.policy.Snapshot())
		return nil
	},
}

func printSummary(w io.Writer, p *config.Policy) {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Fprintf(w, "enabled:          %s\n", onOff(p.Enabled))
	fmt.Fprintf(w, "personal chats:   %s\n", onOff(p.Personal.Enabled))
	fmt.Fprintf(w, "group chats:      %s (allowed %d, blocked %d)\n", onOff(p.Groups.Enabled), len(p.Groups.Allowed), len(p.Groups.Blocked))
	fmt.Fprintf(w, "allow / block:    %d / %d\n", len(p.Allow), len(p.Block))
	fmt.Fprintf(w, "blocked phrases:  %d\n", len(p.BlockedPhrases))
	fmt.Fprintf(w, "cooldown:         %gm\n", p.CooldownMinutes)
	fmt.Fprintf(w, "proactive:        %s every %gm\n", onOff(p.Proactive.Enabled), p.Proactive.FrequencyMinutes)
	fmt.Fprintf(w, "game group:       %s %q\n", onOff(p.GameGroup.Enabled), p.GameGroup.Name)
	fmt.Fprintf(w, "safety:           lexicon=%s strict=%s\n", onOff(p.Safety.Lexicon), onOff(p.Safety.Strict))
	fmt.Fprintf(w, "relays:           %d\n", len(p.Relay))

	ids := make([]string, 0, len(p.Personas))
	for id := range p.Personas {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fmt.Fprintf(w, "personas:         %d\n", len(ids))
	for _, id := range ids {
		e := p.Personas[id]
		var flags []string
		if e.Protected {
			flags = append(flags, "protected")
		}
		if e.Proactive {
			flags = append(flags, "proactive")
		}
		if e.ReducedFrequency {
			flags = append(flags, "reduced")
		}
		style := e.Style
		if style == "" {
			style = "default"
		}
		fmt.Fprintf(w, "  %-20s %-10s %s\n", id, style, strings.Join(flags, ","))
	}
}
