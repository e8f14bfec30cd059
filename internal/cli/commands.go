// Package cli implements the optiscope terminal dashboard: quotes, candles
// and option chains fetched through the relay, plus an interactive contract
// picker.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"optiscope/internal/domain"
	"optiscope/internal/market"
	"optiscope/internal/options"
	"optiscope/internal/upstream"
	"optiscope/internal/util"
	"optiscope/pkg/optiscope"
)

// DefaultRelayURL is used when neither --relay nor OPTISCOPE_RELAY is set.
const DefaultRelayURL = "http://localhost:3001"

// env holds what every subcommand shares once flags are parsed.
type env struct {
	relayURL string
	logLevel string
	timeout  time.Duration

	client *optiscope.Client
	log    *slog.Logger
	out    io.Writer
}

func (e *env) init(out io.Writer) {
	e.out = out
	e.log = util.NewLoggerTo(os.Stderr, e.logLevel, "text")
	e.client = optiscope.NewClientWithConfig(upstream.Config{
		BaseURL: e.relayURL,
		Timeout: e.timeout,
		Logger:  e.log,
	})
}

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	e := &env{}

	defRelay := os.Getenv("OPTISCOPE_RELAY")
	if defRelay == "" {
		defRelay = DefaultRelayURL
	}

	rootCmd := &cobra.Command{
		Use:   "optiscope",
		Short: "optiscope - stock and options dashboard",
		Long: `optiscope shows stock quotes, recent candles and option chains
fetched through the optiscope relay, and lets you pick a single contract
to inspect its end-of-day history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			e.init(cmd.OutOrStdout())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := PromptForSymbol()
			if err != nil {
				return err
			}
			return runSelect(cmd.Context(), e, symbol)
		},
	}

	rootCmd.AddCommand(newQuoteCmd(e))
	rootCmd.AddCommand(newCandlesCmd(e))
	rootCmd.AddCommand(newExpirationsCmd(e))
	rootCmd.AddCommand(newStrikesCmd(e))
	rootCmd.AddCommand(newChainCmd(e))
	rootCmd.AddCommand(newSelectCmd(e))
	rootCmd.AddCommand(newVersionCmd(version))

	rootCmd.PersistentFlags().StringVar(&e.relayURL, "relay", defRelay, "Relay base URL")
	rootCmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().DurationVar(&e.timeout, "timeout", upstream.DefaultTimeout, "Request timeout")

	return rootCmd
}

// newQuoteCmd creates the quote command
func newQuoteCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Show the latest quote and 30-day candles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := normalizeSymbol(args[0])
			svc := market.NewService(e.client, market.WithLogger(e.log))

			q, err := svc.Quote(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, RenderQuoteCards(symbol, q))

			c, err := svc.RecentCandles(cmd.Context(), symbol)
			if err != nil {
				fmt.Fprintln(e.out, ErrorBanner(err))
				return nil
			}
			fmt.Fprintln(e.out, RenderCandles(c))
			return nil
		},
	}
}

// newCandlesCmd creates the candles command
func newCandlesCmd(e *env) *cobra.Command {
	var resolution, from, to string

	cmd := &cobra.Command{
		Use:   "candles SYMBOL",
		Short: "Show OHLCV candles for a date window",
		Long: `Show OHLCV candles for a symbol.
Example: optiscope candles AAPL --resolution=D --from=2024-06-01 --to=2024-07-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			start, end := now.Add(-market.RecentWindow), now
			var err error
			if from != "" {
				if start, err = time.Parse(time.DateOnly, from); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}
			if to != "" {
				if end, err = time.Parse(time.DateOnly, to); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			svc := market.NewService(e.client, market.WithLogger(e.log))
			c, err := svc.Candles(cmd.Context(), normalizeSymbol(args[0]), resolution, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, RenderCandles(c))
			return nil
		},
	}

	cmd.Flags().StringVar(&resolution, "resolution", "D", "Candle resolution (1, 5, 15, 30, 60, D, W, M)")
	cmd.Flags().StringVar(&from, "from", "", "Window start, YYYY-MM-DD (default 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "Window end, YYYY-MM-DD (default now)")

	return cmd
}

// newExpirationsCmd creates the expirations command
func newExpirationsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "expirations SYMBOL",
		Short: "List option expirations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exps, err := e.client.Expirations(cmd.Context(), normalizeSymbol(args[0]))
			if err != nil {
				return err
			}
			for _, d := range exps {
				fmt.Fprintln(e.out, d)
			}
			return nil
		},
	}
}

// newStrikesCmd creates the strikes command
func newStrikesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "strikes SYMBOL EXPIRATION",
		Short: "List strikes for one expiration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			strikes, err := e.client.Strikes(cmd.Context(), normalizeSymbol(args[0]), args[1])
			if err != nil {
				return err
			}
			for _, k := range strikes {
				fmt.Fprintln(e.out, FormatStrike(k))
			}
			return nil
		},
	}
}

// newChainCmd creates the chain command
func newChainCmd(e *env) *cobra.Command {
	var right, expiration string
	var partial bool

	cmd := &cobra.Command{
		Use:   "chain SYMBOL",
		Short: "Show the aggregated option chain",
		Long: `Show last price, volume and open interest for every strike of one
expiration. Without --expiration the nearest listed expiration is used.
With --partial the chain is aggregated locally and strikes that fail are
listed instead of failing the whole chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := normalizeSymbol(args[0])
			r := domain.ParseRight(right)

			if !partial {
				data, err := e.client.OptionsChain(cmd.Context(), symbol, r, expiration)
				if err != nil {
					return err
				}
				fmt.Fprintln(e.out, RenderChain(symbol, r, data))
				return nil
			}

			agg := options.NewAggregator(e.client, options.WithLogger(e.log))
			res, err := agg.FetchPartial(cmd.Context(), options.Request{
				Symbol:     symbol,
				Right:      r,
				Expiration: expiration,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, RenderChain(symbol, r, res.Data))
			if msg := RenderFailures(res.Failed); msg != "" {
				fmt.Fprintln(e.out, msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&right, "type", "call", "Option type (call or put)")
	cmd.Flags().StringVar(&expiration, "expiration", "", "Expiration, YYYY-MM-DD")
	cmd.Flags().BoolVar(&partial, "partial", false, "Keep strikes that succeed when others fail")

	return cmd
}

// newSelectCmd creates the interactive contract picker
func newSelectCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "select [SYMBOL]",
		Short: "Pick a contract interactively and page through its history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			if len(args) == 1 {
				symbol = normalizeSymbol(args[0])
				if err := validateSymbol(symbol); err != nil {
					return err
				}
			} else {
				var err error
				if symbol, err = PromptForSymbol(); err != nil {
					return err
				}
			}
			return runSelect(cmd.Context(), e, symbol)
		},
	}
}

// newVersionCmd creates the version command
func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "optiscope %s\n", version)
		},
	}
}

func runSelect(ctx context.Context, e *env, symbol string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.client.Health(ctx); err != nil {
		return fmt.Errorf("relay at %s is not reachable: %w", e.client.BaseURL(), err)
	}
	return newPicker(e.client, symbol, e.out, e.log).run(ctx)
}
