package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cyklon/internal/config"
	"cyklon/internal/model"
	"cyklon/internal/tickmath"
)

type poolView struct {
	Address     string     `json:"address"`
	Mint0       string     `json:"mint0"`
	Mint1       string     `json:"mint1"`
	SqrtPrice   string     `json:"sqrt_price"`
	Tick        int32      `json:"tick"`
	TickSpacing int32      `json:"tick_spacing"`
	Liquidity   string     `json:"liquidity"`
	TickNets    []tickView `json:"tick_nets,omitempty"`
}

type tickView struct {
	Tick         int32  `json:"tick"`
	LiquidityNet string `json:"liquidity_net"`
}

type positionView struct {
	Address   string `json:"address"`
	Pool      string `json:"pool"`
	Owner     string `json:"owner"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
}

type liquidityView struct {
	Pool      string `json:"pool"`
	Owner     string `json:"owner,omitempty"`
	TickLower int32  `json:"tick_lower"`
	TickUpper int32  `json:"tick_upper"`
	Liquidity string `json:"liquidity"`
}

func newPoolView(pool *model.Pool, nets []model.TickNet) (poolView, error) {
	tick, err := tickmath.TickAtSqrtPrice(pool.SqrtPrice)
	if err != nil {
		return poolView{}, fmt.Errorf("current tick: %w", err)
	}
	view := poolView{
		Address:     pool.Address.Hex(),
		Mint0:       pool.Mint0.Hex(),
		Mint1:       pool.Mint1.Hex(),
		SqrtPrice:   pool.SqrtPrice.Dec(),
		Tick:        tick,
		TickSpacing: pool.TickSpacing,
		Liquidity:   pool.Liquidity.Dec(),
	}
	for _, net := range nets {
		view.TickNets = append(view.TickNets, tickView{Tick: net.Tick, LiquidityNet: net.LiquidityNet.String()})
	}
	return view, nil
}

func newPositionView(position *model.Position) positionView {
	return positionView{
		Address:   position.Address.Hex(),
		Pool:      position.Pool.Hex(),
		Owner:     position.Owner.Hex(),
		TickLower: position.TickLower,
		TickUpper: position.TickUpper,
		Liquidity: position.Liquidity.Dec(),
	}
}

func newInitPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-pool",
		Short: "Create a pool for an ordered mint pair",
		RunE:  runInitPool,
	}
	cmd.Flags().String("payer", "", "payer address")
	cmd.Flags().String("mint0", "", "first mint address")
	cmd.Flags().String("mint1", "", "second mint address")
	cmd.Flags().Int32("tick-spacing", 0, "tick spacing (0 uses the configured default)")
	cmd.Flags().String("sqrt-price", "", "initial Q64.96 sqrt price, decimal or 0x hex (empty uses the configured default)")
	return cmd
}

func runInitPool(cmd *cobra.Command, _ []string) error {
	payer, err := addressFlag(cmd, "payer")
	if err != nil {
		return err
	}
	mint0, err := addressFlag(cmd, "mint0")
	if err != nil {
		return err
	}
	mint1, err := addressFlag(cmd, "mint1")
	if err != nil {
		return err
	}
	tickSpacing, _ := cmd.Flags().GetInt32("tick-spacing")
	rawPrice, _ := cmd.Flags().GetString("sqrt-price")
	sqrtPrice, err := config.ParseSqrtPrice(rawPrice)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := a.service.InitializePool(cmd.Context(), model.InitializePoolRequest{
		Payer:       payer,
		Mint0:       mint0,
		Mint1:       mint1,
		TickSpacing: tickSpacing,
		SqrtPrice:   sqrtPrice,
	})
	if err != nil {
		return err
	}
	view, err := newPoolView(pool, nil)
	if err != nil {
		return err
	}
	return printJSON(cmd, view)
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().Uint64("amount0", 0, "maximum amount of mint0")
	cmd.Flags().Uint64("amount1", 0, "maximum amount of mint1")
	cmd.Flags().Int32("tick-lower", 0, "lower tick (inclusive)")
	cmd.Flags().Int32("tick-upper", 0, "upper tick (exclusive)")
}

func readRangeFlags(cmd *cobra.Command) (model.QuoteRequest, error) {
	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return model.QuoteRequest{}, err
	}
	req := model.QuoteRequest{Pool: pool}
	req.Amount0, _ = cmd.Flags().GetUint64("amount0")
	req.Amount1, _ = cmd.Flags().GetUint64("amount1")
	req.TickLower, _ = cmd.Flags().GetInt32("tick-lower")
	req.TickUpper, _ = cmd.Flags().GetInt32("tick-upper")
	return req, nil
}

func newAddLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-liquidity",
		Short: "Deposit tokens into a position over a tick range",
		RunE:  runAddLiquidity,
	}
	addRangeFlags(cmd)
	cmd.Flags().String("owner", "", "owner address")
	return cmd
}

func runAddLiquidity(cmd *cobra.Command, _ []string) error {
	rng, err := readRangeFlags(cmd)
	if err != nil {
		return err
	}
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	liquidity, err := a.service.AddLiquidity(cmd.Context(), model.AddLiquidityRequest{
		Pool:      rng.Pool,
		Owner:     owner,
		Amount0:   rng.Amount0,
		Amount1:   rng.Amount1,
		TickLower: rng.TickLower,
		TickUpper: rng.TickUpper,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, liquidityView{
		Pool:      rng.Pool.Hex(),
		Owner:     owner.Hex(),
		TickLower: rng.TickLower,
		TickUpper: rng.TickUpper,
		Liquidity: liquidity.Dec(),
	})
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute the liquidity an addition would credit without applying it",
		RunE:  runQuote,
	}
	addRangeFlags(cmd)
	return cmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	req, err := readRangeFlags(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	liquidity, err := a.service.Quote(cmd.Context(), req)
	if err != nil {
		return err
	}
	return printJSON(cmd, liquidityView{
		Pool:      req.Pool.Hex(),
		TickLower: req.TickLower,
		TickUpper: req.TickUpper,
		Liquidity: liquidity.Dec(),
	})
}

func newShowPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-pool",
		Short: "Show a pool with its current tick and initialized ticks",
		RunE:  runShowPool,
	}
	cmd.Flags().String("pool", "", "pool address")
	return cmd
}

func runShowPool(cmd *cobra.Command, _ []string) error {
	address, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pool, err := a.service.Pool(cmd.Context(), address)
	if err != nil {
		return err
	}
	nets, err := a.service.TickNets(cmd.Context(), address)
	if err != nil {
		return err
	}
	view, err := newPoolView(pool, nets)
	if err != nil {
		return err
	}
	return printJSON(cmd, view)
}

func newShowPositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show-position",
		Short: "Show an owner's position in a pool",
		RunE:  runShowPosition,
	}
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("owner", "", "owner address")
	return cmd
}

func runShowPosition(cmd *cobra.Command, _ []string) error {
	pool, err := addressFlag(cmd, "pool")
	if err != nil {
		return err
	}
	owner, err := addressFlag(cmd, "owner")
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	position, err := a.service.Position(cmd.Context(), pool, owner)
	if err != nil {
		return err
	}
	return printJSON(cmd, newPositionView(position))
}
