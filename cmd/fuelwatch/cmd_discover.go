package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/osservaprezzi/fuelwatch/internal/api"
	"github.com/osservaprezzi/fuelwatch/internal/config"
	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/validator"
	"github.com/osservaprezzi/fuelwatch/internal/wizard"
)

// discoverCmd drives the discovery wizard on the terminal and writes the
// resulting configuration record into the config directory. The wizard
// itself is headless; this command is only the form renderer.
func discoverCmd() *cobra.Command {
	var scanInterval int
	var title string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find stations to monitor and create a configuration record",
		Long: "Walks through station discovery, either by region/province/town search " +
			"or by manually entered station identifiers, and writes the resulting " +
			"configuration record as a JSON file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			client := api.New(cfg.APIBaseURL, time.Duration(cfg.RequestTimeout)*time.Second, logger)
			v := validator.New(client, logger)
			w := wizard.New(client, v, cfg.ScanInterval, logger)

			ctx := cmd.Context()
			reader := bufio.NewReader(os.Stdin)

			session, err := runDiscovery(ctx, w, reader, scanInterval, title)
			if err != nil {
				return err
			}

			switch session.State {
			case wizard.StateAborted:
				fmt.Printf("Aborted: %s\n", session.AbortReason)
				return nil
			case wizard.StateCreated:
				rec := *session.Result
				rec.ID = fmt.Sprintf("stations-%s", time.Now().Format("20060102-150405"))
				path, err := config.WriteRecord(cfg.ConfigDir, rec)
				if err != nil {
					return err
				}
				fmt.Printf("Created %q with %d station(s): %s\n", rec.Title, len(rec.Stations), path)
				return nil
			default:
				return fmt.Errorf("wizard ended in unexpected state %q", session.State)
			}
		},
	}

	cmd.Flags().IntVar(&scanInterval, "scan-interval", 0, "Scan interval in seconds (0 uses the default)")
	cmd.Flags().StringVar(&title, "title", "", "Title for the configuration record")

	return cmd
}

func runDiscovery(ctx context.Context, w *wizard.Wizard, reader *bufio.Reader, scanInterval int, title string) (wizard.Session, error) {
	session := w.Start()

	method, err := promptMethod(reader)
	if err != nil {
		return session, err
	}
	session, err = w.ChooseMethod(ctx, session, method)
	if err != nil {
		return session, err
	}

	if method == wizard.MethodManual {
		return runManualEntry(ctx, w, session, reader, scanInterval, title)
	}

	for _, step := range []struct {
		label  string
		choose func(context.Context, wizard.Session, string) (wizard.Session, error)
	}{
		{"region", w.SelectRegion},
		{"province", w.SelectProvince},
		{"town", w.SelectTown},
	} {
		id, err := promptOption(reader, step.label, session.Options)
		if err != nil {
			return session, err
		}
		session, err = step.choose(ctx, session, id)
		if err != nil {
			return session, err
		}
		if session.State == wizard.StateAborted {
			return session, nil
		}
	}

	ids, err := promptStations(reader, session.Candidates)
	if err != nil {
		return session, err
	}
	return w.SelectStations(session, ids, scanInterval, title)
}

func runManualEntry(ctx context.Context, w *wizard.Wizard, session wizard.Session, reader *bufio.Reader, scanInterval int, title string) (wizard.Session, error) {
	fmt.Println("Enter one station per line as 'id' or 'id,name'. Finish with an empty line:")

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line == "" || err != nil {
			break
		}
		lines = append(lines, line)
	}

	session, err := w.SubmitManualEntry(ctx, session, strings.Join(lines, "\n"), scanInterval, title)
	if err != nil {
		return session, err
	}

	if session.State == wizard.StateConfirmPartial {
		fmt.Printf("%d of %d station(s) validated:\n", len(session.Valid), len(session.Valid)+len(session.InvalidIDs))
		for _, v := range session.Valid {
			fmt.Println("  " + v.Preview)
		}
		fmt.Printf("Invalid ids: %s\n", strings.Join(session.InvalidIDs, ", "))

		answer, err := prompt(reader, "Proceed with the valid stations only? [y/N]")
		if err != nil {
			return session, err
		}
		proceed := strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
		return w.ConfirmPartial(session, proceed)
	}

	return session, nil
}

func promptMethod(reader *bufio.Reader) (wizard.Method, error) {
	answer, err := prompt(reader, "Discovery method: [1] search by area, [2] enter station ids")
	if err != nil {
		return "", err
	}
	switch answer {
	case "1", "search":
		return wizard.MethodSearch, nil
	case "2", "manual":
		return wizard.MethodManual, nil
	default:
		return "", fmt.Errorf("unknown method %q", answer)
	}
}

func promptOption(reader *bufio.Reader, label string, options []models.Option) (string, error) {
	if len(options) == 0 {
		fmt.Printf("No %s options available.\n", label)
	}
	for i, o := range options {
		fmt.Printf("  [%d] %s\n", i+1, o.Label)
	}
	answer, err := prompt(reader, "Select "+label)
	if err != nil {
		return "", err
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1].ID, nil
	}
	return answer, nil
}

func promptStations(reader *bufio.Reader, candidates []models.StationCandidate) ([]int, error) {
	for i, c := range candidates {
		line := fmt.Sprintf("  [%d] %s", i+1, c.Name)
		if c.Brand != "" {
			line += " (" + c.Brand + ")"
		}
		if c.Address != "" {
			line += " - " + c.Address
		}
		fmt.Println(line)
	}

	answer, err := prompt(reader, "Select stations (comma-separated numbers)")
	if err != nil {
		return nil, err
	}

	var ids []int
	for _, tok := range strings.Split(answer, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > len(candidates) {
			return nil, fmt.Errorf("invalid selection %q", tok)
		}
		ids = append(ids, candidates[n-1].ID)
	}
	return ids, nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
