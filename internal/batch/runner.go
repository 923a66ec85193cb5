package batch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"cyklon/internal/model"
	"cyklon/internal/pool"
)

// ClassDecode marks input lines that could not be parsed.
const ClassDecode = "decode"

// Applier adds liquidity for one request.
type Applier interface {
	AddLiquidity(ctx context.Context, req model.AddLiquidityRequest) (*uint256.Int, error)
}

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	BatchSize         uint64
	Workers           int
	CheckpointPath    string
	CheckpointEnabled bool
	ErrorsPath        string
}

// Summary totals one replay run.
type Summary struct {
	FromLine  uint64
	ToLine    uint64
	Succeeded uint64
	Failed    uint64
	Liquidity *uint256.Int
}

// Runner replays AddLiquidity requests from a JSONL file. Requests of one
// owner run in file order, since they share the owner's balances across
// pools; distinct owners run concurrently.
type Runner struct {
	cfg        RunConfig
	applier    Applier
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

func NewRunner(cfg RunConfig, applier Applier, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Runner{
		cfg:        cfg,
		applier:    applier,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

type job struct {
	line uint64
	req  model.AddLiquidityRequest
}

func (r *Runner) Run(ctx context.Context, inputPath string) (Summary, error) {
	summary := Summary{Liquidity: new(uint256.Int)}
	if r.applier == nil {
		return summary, fmt.Errorf("applier is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}

	lines, err := readLines(inputPath)
	if err != nil {
		return summary, err
	}
	total := uint64(len(lines))

	from := uint64(1)
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return summary, err
	}
	if ok {
		if cp.Input == inputPath {
			from = cp.LastProcessedLine + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedLine), zap.Uint64("from", from))
		} else {
			r.logger.Warn("checkpoint belongs to another input, starting over", zap.String("checkpoint_input", cp.Input))
		}
	}
	summary.FromLine = from
	summary.ToLine = from - 1

	if from > total {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("lines", total))
		return summary, nil
	}

	ranges, err := SplitRange(from, total, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	workers, err := ants.NewPool(r.cfg.Workers)
	if err != nil {
		return summary, fmt.Errorf("create worker pool: %w", err)
	}
	defer workers.Release()

	for _, lineRange := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		failures, err := r.runChunk(ctx, workers, lines, lineRange, &summary)
		if err != nil {
			return summary, err
		}
		if err := r.writeErrors(failures); err != nil {
			return summary, err
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := r.checkpoint.Save(inputPath, lineRange.To); err != nil {
			return summary, err
		}
		summary.ToLine = lineRange.To

		r.logger.Info("chunk replayed",
			zap.Uint64("from", lineRange.From),
			zap.Uint64("to", lineRange.To),
			zap.Int("failed", len(failures)),
		)
	}
	return summary, nil
}

func (r *Runner) runChunk(ctx context.Context, workers *ants.Pool, lines [][]byte, lineRange LineRange, summary *Summary) ([]model.ReplayError, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures []model.ReplayError
	)
	fail := func(line uint64, req model.AddLiquidityRequest, class string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, replayError(line, req, class, err))
		summary.Failed++
	}

	groups := make(map[common.Address][]job)
	var order []common.Address
	for line := lineRange.From; line <= lineRange.To; line++ {
		raw := lines[line-1]
		if len(raw) == 0 {
			continue
		}
		var req model.AddLiquidityRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			fail(line, req, ClassDecode, err)
			continue
		}
		if _, ok := groups[req.Owner]; !ok {
			order = append(order, req.Owner)
		}
		groups[req.Owner] = append(groups[req.Owner], job{line: line, req: req})
	}

	for _, owner := range order {
		jobs := groups[owner]
		wg.Add(1)
		err := workers.Submit(func() {
			defer wg.Done()
			for _, j := range jobs {
				if ctx.Err() != nil {
					return
				}
				liquidity, err := r.applier.AddLiquidity(ctx, j.req)
				if err != nil {
					fail(j.line, j.req, pool.Classify(err), err)
					continue
				}
				mu.Lock()
				summary.Succeeded++
				summary.Liquidity.Add(summary.Liquidity, liquidity)
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit replay task: %w", err)
		}
	}
	wg.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].Line < failures[j].Line })
	return failures, nil
}

func replayError(line uint64, req model.AddLiquidityRequest, class string, err error) model.ReplayError {
	out := model.ReplayError{
		Line:      line,
		TickLower: req.TickLower,
		TickUpper: req.TickUpper,
		Class:     class,
		Error:     err.Error(),
	}
	if req.Pool != (common.Address{}) {
		out.Pool = req.Pool.Hex()
	}
	if req.Owner != (common.Address{}) {
		out.Owner = req.Owner.Hex()
	}
	return out
}

func (r *Runner) writeErrors(failures []model.ReplayError) error {
	if len(failures) == 0 || r.cfg.ErrorsPath == "" {
		return nil
	}
	dir := filepath.Dir(r.cfg.ErrorsPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create errors dir: %w", err)
		}
	}
	file, err := os.OpenFile(r.cfg.ErrorsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open errors file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, failure := range failures {
		if err := encoder.Encode(failure); err != nil {
			return fmt.Errorf("write replay error: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush errors: %w", err)
	}
	return nil
}

func readLines(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, bytes.Clone(bytes.TrimSpace(scanner.Bytes())))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
