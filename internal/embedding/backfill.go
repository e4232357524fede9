package embedding

import (
	"context"

	"github.com/khanglvm/game-curator/internal/library"
)

// JobResult summarizes a backfill run.
type JobResult struct {
	// Processed counts every game the job attempted.
	Processed int `json:"processed"`
	// Generated counts vectors newly produced by the provider.
	Generated int `json:"generated"`
	// Errors counts games in chunks that failed.
	Errors int `json:"errors"`
}

// Backfill embeds games in chunks of the configured batch size. A failing
// chunk is counted and logged, and the job moves on to the next one.
func (p *Pipeline) Backfill(ctx context.Context, games []library.Game) JobResult {
	var res JobResult

	for start := 0; start < len(games); start += p.batchSize {
		if ctx.Err() != nil {
			res.Errors += len(games) - start
			res.Processed += len(games) - start
			p.log.Warn().Err(ctx.Err()).Int("remaining", len(games)-start).Msg("Backfill cancelled")
			break
		}

		end := start + p.batchSize
		if end > len(games) {
			end = len(games)
		}
		chunk := games[start:end]
		res.Processed += len(chunk)

		results, err := p.EmbedGames(ctx, chunk)
		if err != nil {
			res.Errors += len(chunk)
			p.log.Error().Err(err).Int("chunk_start", start).Int("chunk_size", len(chunk)).Msg("Backfill chunk failed")
			continue
		}
		for _, r := range results {
			if r.Generated {
				res.Generated++
			}
		}
	}

	p.log.Info().
		Int("processed", res.Processed).
		Int("generated", res.Generated).
		Int("errors", res.Errors).
		Msg("Embedding backfill finished")
	return res
}
