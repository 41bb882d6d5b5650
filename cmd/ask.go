package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
)

func newAskCmd() *cobra.Command {
	var req contractx.ChatRequest

	cmd := &cobra.Command{
		Use:     "ask <message>",
		Short:   "Run one turn and print the response as JSON",
		Example: `  chative-router ask "find running shoes under 80 euro and add the first to my cart"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.CustomerMessage = strings.Join(args, " ")
			turn, err := req.TurnRequest()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Coordinator.Process(ctx, turn)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(contractx.NewChatResponse(res))
		},
	}

	cmd.Flags().StringVar(&req.ContextToken, "context-token", "", "storefront context token to continue a session")
	cmd.Flags().StringVar(&req.LanguageID, "language-id", "", "storefront language id or locale")
	cmd.Flags().StringVar(&req.SalesChannelID, "sales-channel-id", "", "storefront sales channel id")

	return cmd
}
