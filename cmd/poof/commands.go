package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"poofkit/internal/circuits"
	"poofkit/internal/kit"
	"poofkit/internal/prover"
)

var allowanceCmd = &cobra.Command{
	Use:   "allowance <currency>",
	Short: "Get the allowance granted to the pool for an ERC20",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		k, err := current.connect(ctx)
		if err != nil {
			return err
		}
		owner, err := current.account()
		if err != nil {
			return err
		}
		p, err := k.PoolMatch(ctx, args[0])
		if err != nil {
			return err
		}
		v, err := k.Allowance(ctx, args[0], owner)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", FormatUnits(v, p.TokenDecimals()), p.Symbol)
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <currency> [amount]",
	Short: "Allow the pool to pull an ERC20, 100 units by default",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		k, err := current.connect(ctx)
		if err != nil {
			return err
		}
		p, err := k.PoolMatch(ctx, args[0])
		if err != nil {
			return err
		}
		amount := "100"
		if len(args) == 2 {
			amount = args[1]
		}
		v, err := ParseUnits(amount, p.TokenDecimals())
		if err != nil {
			return err
		}
		res, err := k.Approve(ctx, args[0], v)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

func depositCommand(use, short string, debt bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <currency> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			k, err := current.connect(ctx)
			if err != nil {
				return err
			}
			priv, err := current.poofKey()
			if err != nil {
				return err
			}
			p, err := k.PoolMatch(ctx, args[0])
			if err != nil {
				return err
			}
			v, err := ParseUnits(args[1], p.TokenDecimals())
			if err != nil {
				return err
			}
			req := kit.DepositRequest{Currency: args[0], PrivateKey: priv, Amount: v}
			if debt {
				req.Amount, req.Debt = nil, v
			}
			res, err := k.Deposit(ctx, req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

func withdrawCommand(use, short string, debt bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <currency> <amount> [recipient] [relayerUrl]",
		Short: short,
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			k, err := current.connect(ctx)
			if err != nil {
				return err
			}
			priv, err := current.poofKey()
			if err != nil {
				return err
			}
			p, err := k.PoolMatch(ctx, args[0])
			if err != nil {
				return err
			}
			v, err := ParseUnits(args[1], p.TokenDecimals())
			if err != nil {
				return err
			}
			req := kit.WithdrawRequest{Currency: args[0], PrivateKey: priv, Amount: v, RelayerURL: current.cfg.RelayerURL}
			if debt {
				req.Amount, req.Debt = nil, v
			}
			if len(args) > 2 {
				if !common.IsHexAddress(args[2]) {
					return fmt.Errorf("invalid recipient %q", args[2])
				}
				req.Recipient = common.HexToAddress(args[2])
			} else if req.Recipient, err = current.account(); err != nil {
				return fmt.Errorf("no recipient given and %w", err)
			}
			if len(args) > 3 {
				req.RelayerURL = args[3]
			}
			res, err := k.Withdraw(ctx, req)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Generate a new hidden-account key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		priv, pub, err := kit.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "private key: %s\npublic key:  %s\n", priv, pub)
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <currency>",
	Short: "Get the hidden balance and debt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		k, err := current.connect(ctx)
		if err != nil {
			return err
		}
		priv, err := current.poofKey()
		if err != nil {
			return err
		}
		p, err := k.PoolMatch(ctx, args[0])
		if err != nil {
			return err
		}
		amount, debt, err := k.HiddenBalance(ctx, args[0], priv)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		decimals := p.TokenDecimals()
		fmt.Fprintf(out, "hidden: %s %s\n", FormatUnits(amount, decimals), p.Symbol)
		fmt.Fprintf(out, "debt:   %s %s\n", FormatUnits(debt, decimals), p.Symbol)
		if owner, err := current.account(); err == nil {
			if v, err := k.Balance(ctx, args[0], owner); err == nil {
				fmt.Fprintf(out, "wallet: %s %s\n", FormatUnits(v, decimals), p.Symbol)
			}
			if v, err := k.PBalance(ctx, args[0], owner); err == nil {
				fmt.Fprintf(out, "pool:   %s %s\n", FormatUnits(v, decimals), p.PSymbol)
			}
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <currency>",
	Short: "Show a pool's token contracts and check them against the configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		k, err := current.connect(ctx)
		if err != nil {
			return err
		}
		v, err := k.Verify(ctx, args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return err
		}
		if !v.TokenMatches {
			return fmt.Errorf("pool token %s does not match the configured token", v.Token.Hex())
		}
		return nil
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup <dir> [kind...]",
	Short: "Compile the circuits and write development proving material",
	Long: "Compiles each circuit, runs a single-party Groth16 setup and writes the gzip blobs read\n" +
		"through keys_location, the verifying keys and a Solidity verifier per circuit.\n" +
		"The output is only suitable for development pools.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kinds := circuits.Kinds()
		if len(args) > 1 {
			kinds = kinds[:0]
			for _, name := range args[1:] {
				k, err := circuits.ParseKind(name)
				if err != nil {
					return err
				}
				kinds = append(kinds, k)
			}
		}
		for _, k := range kinds {
			m, _, err := prover.Setup(k, args[0])
			if err != nil {
				return err
			}
			current.log.Info().Str("circuit", k.String()).Int("constraints", m.CS.GetNbConstraints()).Msg("setup complete")
		}
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the node, relayer and proving material",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		hc := newHealthChecks(current)
		h := hc.CheckHealth(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(h); err != nil {
			return err
		}
		if h.OverallStatus == Unhealthy {
			return fmt.Errorf("system is unhealthy")
		}
		return nil
	},
}

func printResult(out io.Writer, res *kit.Result) error {
	switch {
	case res.TxHash != "":
		fmt.Fprintf(out, "%s transaction: %s\n", res.Method, explorerLink(res.TxHash))
	case res.RelayerError != nil:
		fmt.Fprintf(out, "%s relayer error: %v\n", res.Method, res.RelayerError)
	case res.JobID != "":
		fmt.Fprintf(out, "%s relayer job %s is still pending\n", res.Method, res.JobID)
	default:
		unsigned := struct {
			Method string   `json:"method"`
			To     string   `json:"to"`
			Data   string   `json:"data"`
			Value  *big.Int `json:"value,omitempty"`
		}{res.Method, res.Call.To.Hex(), hexutil.Encode(res.Call.Data), res.Call.Value}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(unsigned)
	}
	if res.Fee != nil && res.Fee.Sign() > 0 {
		fmt.Fprintf(out, "relayer fee: %s\n", res.Fee)
	}
	return nil
}

func explorerLink(hash string) string {
	if current == nil || current.cfg.ExplorerURL == "" {
		return hash
	}
	return strings.TrimRight(current.cfg.ExplorerURL, "/") + "/tx/" + hash
}

func init() {
	rootCmd.AddCommand(allowanceCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(depositCommand("deposit", "Deposit into a hidden account", false))
	rootCmd.AddCommand(depositCommand("burn", "Repay debt of a hidden account", true))
	rootCmd.AddCommand(withdrawCommand("withdraw", "Withdraw from a hidden account", false))
	rootCmd.AddCommand(withdrawCommand("mint", "Mint against a hidden balance", true))
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(healthCmd)
}
