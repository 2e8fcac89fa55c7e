package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/FairForge/webpixels/internal/auth"
	"github.com/FairForge/webpixels/internal/bridge"
	"github.com/FairForge/webpixels/internal/pixel"
	"github.com/FairForge/webpixels/internal/stream"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// translateCmd runs an event through the translator without contacting any
// vendor and prints what each configured vendor would receive.
func translateCmd() *cobra.Command {
	var (
		eventPath string
		ids       = map[pixel.Vendor]*string{}
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Dry-run an event JSON through the vendor translator",
		Example: `  echo '{"name":"product_viewed","data":{"product_id":"p1"}}' | webpixels translate --facebook 123 --google G-1
  webpixels translate --event event.json --tiktok TT1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), eventPath)
			if err != nil {
				return err
			}
			ev, err := pixel.DecodeEvent(raw)
			if err != nil {
				return err
			}

			s := pixel.Settings{Identifiers: map[pixel.Vendor]string{}}
			for v, id := range ids {
				s.Identifiers[v] = *id
			}
			if len(s.Configured()) == 0 {
				return fmt.Errorf("configure at least one vendor identifier")
			}

			rec := bridge.NewRecorder()
			pixel.NewForwarder(s, rec.Trackers()).Forward(cmd.Context(), ev)

			calls := rec.Calls()
			if calls == nil {
				calls = []bridge.Call{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(calls)
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "-", "Event JSON file, - for stdin")
	for _, v := range pixel.Vendors {
		ids[v] = cmd.Flags().String(string(v), "", fmt.Sprintf("%s pixel identifier", v))
	}
	return cmd
}

func tokenCmd(g *globalFlags) *cobra.Command {
	var store, userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin session token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			token, err := auth.NewSessions(cfg.Auth, zap.NewNop()).Issue(store, userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "Store the session is for")
	cmd.Flags().StringVar(&userID, "user", "dev", "User id to embed")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func publishCmd(g *globalFlags) *cobra.Command {
	var store, eventPath string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an event JSON to the NATS intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd.InOrStdin(), eventPath)
			if err != nil {
				return err
			}
			ev, err := pixel.DecodeEvent(raw)
			if err != nil {
				return err
			}

			nc, err := stream.Connect(cfg.NATS, zap.NewNop())
			if err != nil {
				return err
			}
			defer nc.Close()

			if err := stream.Publish(nc, store, ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ published %s for %s\n", ev.Name, store)
			return nil
		},
	}

	cmd.Flags().StringVar(&store, "store", "", "Store the event belongs to")
	cmd.Flags().StringVarP(&eventPath, "event", "e", "-", "Event JSON file, - for stdin")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return raw, nil
}

