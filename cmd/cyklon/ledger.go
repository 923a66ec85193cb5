package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cyklon/internal/config"
	"cyklon/internal/ledger"
	"cyklon/internal/model"
)

func newRegisterMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-mint",
		Short: "Register a token mint with the ledger",
		RunE:  runRegisterMint,
	}
	cmd.Flags().String("mint", "", "mint address")
	cmd.Flags().Uint8("decimals", 0, "token decimals")
	return cmd
}

func runRegisterMint(cmd *cobra.Command, _ []string) error {
	mint, err := addressFlag(cmd, "mint")
	if err != nil {
		return err
	}
	decimals, _ := cmd.Flags().GetUint8("decimals")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	record := model.Mint{Address: mint, Decimals: decimals}
	if err := a.service.RegisterMint(cmd.Context(), record); err != nil {
		return err
	}
	a.logger.Info("mint registered", zap.String("mint", mint.Hex()), zap.Uint8("decimals", decimals))
	return printJSON(cmd, record)
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Credit an owner with tokens of a registered mint",
		RunE:  runDeposit,
	}
	cmd.Flags().String("owner", "", "owner address")
	cmd.Flags().String("mint", "", "mint address")
	cmd.Flags().Uint64("amount", 0, "amount in base units")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}
	mint, err := addressFlag(cmd, "mint")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Deposit(cmd.Context(), owner, mint, amount); err != nil {
		return err
	}
	balance, err := a.service.Balance(cmd.Context(), owner, mint)
	if err != nil {
		return err
	}
	return printJSON(cmd, balanceView{Owner: owner.Hex(), Mint: mint.Hex(), Amount: balance})
}

type balanceView struct {
	Owner     string `json:"owner"`
	Mint      string `json:"mint"`
	Amount    uint64 `json:"amount"`
	Formatted string `json:"formatted,omitempty"`
}

func newBalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show an owner's balances",
		RunE:  runBalance,
	}
	cmd.Flags().String("owner", "", "owner or pool address")
	cmd.Flags().StringSlice("mint", nil, "mint addresses (repeatable or comma-separated)")
	return cmd
}

func runBalance(cmd *cobra.Command, _ []string) error {
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}
	rawMints, _ := cmd.Flags().GetStringSlice("mint")
	mints, err := config.ParseAddresses(rawMints)
	if err != nil {
		return err
	}
	if len(mints) == 0 {
		return fmt.Errorf("--mint is required")
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	views := make([]balanceView, 0, len(mints))
	for _, mint := range mints {
		record, err := a.service.Mint(cmd.Context(), mint)
		if err != nil {
			return err
		}
		amount, err := a.service.Balance(cmd.Context(), owner, mint)
		if err != nil {
			return err
		}
		views = append(views, balanceView{
			Owner:     owner.Hex(),
			Mint:      mint.Hex(),
			Amount:    amount,
			Formatted: ledger.FormatAmount(amount, record.Decimals),
		})
	}
	return printJSON(cmd, views)
}
