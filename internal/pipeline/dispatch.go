package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"codeberg.org/snonux/cardtrans/internal/batch"
	"codeberg.org/snonux/cardtrans/internal/cache"
	"codeberg.org/snonux/cardtrans/internal/placeholder"
	"codeberg.org/snonux/cardtrans/internal/translation"
	"github.com/sirupsen/logrus"
)

// dispatch sends batches on a bounded pool of workers. A fatal translator
// error stops new batches from starting; batches already committed stay in
// the cache.
func (p *Pipeline) dispatch(ctx context.Context, batches [][]*group) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fatal error
	var fatalOnce sync.Once
	var done atomic.Int32

	for i, b := range batches {
		sem <- struct{}{}
		if runCtx.Err() != nil {
			<-sem
			break
		}
		wg.Add(1)

		go func(i int, b []*group) {
			defer func() {
				<-sem
				wg.Done()
			}()

			log := p.log.WithFields(logrus.Fields{"batch": i + 1, "units": len(b)})
			if err := p.translateBatch(runCtx, b, 0, log); err != nil {
				if translation.IsFatal(err) {
					fatalOnce.Do(func() {
						fatal = err
						cancel()
					})
				}
				return
			}
			if p.cfg.OnBatch != nil {
				p.cfg.OnBatch(int(done.Add(1)), len(batches))
			}
		}(i, b)
	}
	wg.Wait()

	if fatal != nil {
		return fmt.Errorf("run aborted: %w", fatal)
	}
	return ctx.Err()
}

// translateBatch translates one batch, halving it after repeated malformed
// replies. It returns an error only for fatal failures and cancellation;
// other failures are recorded on the groups.
func (p *Pipeline) translateBatch(ctx context.Context, groups []*group, depth int, log *logrus.Entry) error {
	texts := make([]string, len(groups))
	for i, g := range groups {
		texts[i] = g.masked
	}

	out, err := p.call(ctx, texts, log)
	if err != nil {
		if translation.IsShape(err) && len(groups) > 1 && depth < p.cfg.MaxSplits {
			left, right := batch.Split(groups)
			log.WithField("depth", depth+1).Warnf("malformed replies, splitting batch into %d and %d", len(left), len(right))
			if err := p.translateBatch(ctx, left, depth+1, log); err != nil {
				return err
			}
			return p.translateBatch(ctx, right, depth+1, log)
		}
		return p.fail(ctx, groups, err, log)
	}

	var mismatched []*group
	for i, g := range groups {
		text, err := placeholder.Unmask(out[i], g.rm)
		if err != nil {
			log.WithField("fingerprint", g.fp[:12]).Warnf("placeholder check failed: %v", err)
			mismatched = append(mismatched, g)
			continue
		}
		g.text, g.status = text, StatusTranslated
	}

	var rawErr error
	if len(mismatched) > 0 {
		rawErr = p.retranslateRaw(ctx, mismatched, log)
	}
	if err := p.commit(ctx, groups, log); err != nil {
		return err
	}
	return rawErr
}

// retranslateRaw sends the unmasked source once and enforces the glossary
// on the reply afterwards
func (p *Pipeline) retranslateRaw(ctx context.Context, groups []*group, log *logrus.Entry) error {
	texts := make([]string, len(groups))
	for i, g := range groups {
		texts[i] = g.source
	}

	out, err := p.call(ctx, texts, log)
	if err != nil {
		if ctx.Err() != nil || translation.IsFatal(err) {
			return p.fail(ctx, groups, err, log)
		}
		for _, g := range groups {
			g.status = StatusFailed
			g.err = fmt.Errorf("placeholder mismatch, raw retry failed: %w", err)
		}
		return nil
	}

	for i, g := range groups {
		g.text = p.glossary.ApplyPost(out[i])
		g.status = StatusTranslated
	}
	return nil
}

// call sends texts through the gate with retries
func (p *Pipeline) call(ctx context.Context, texts []string, log *logrus.Entry) ([]string, error) {
	var out []string
	shapeErrors := 0

	err := p.cfg.Retry.Do(ctx, p.clock, func(attempt int) error {
		if p.gate != nil {
			if _, err := p.gate.Acquire(ctx); err != nil {
				return err
			}
		}
		p.mu.Lock()
		p.calls++
		p.mu.Unlock()

		res, err := p.translator.TranslateBatch(ctx, texts, p.cfg.Pair)
		if err == nil && len(res) != len(texts) {
			err = &translation.ResponseShapeError{Expected: len(texts), Got: len(res)}
		}
		if err != nil {
			if translation.IsShape(err) {
				shapeErrors++
			}
			log.WithField("attempt", attempt).Warnf("translation failed: %v", err)
			return err
		}
		out = res
		return nil
	}, func(err error) bool {
		// a second malformed reply is handled by splitting, not retrying
		if translation.IsShape(err) {
			return shapeErrors < 2
		}
		return translation.IsTransient(err)
	})
	return out, err
}

// fail records err on every group that has no result yet. Fatal errors and
// cancellation are passed up.
func (p *Pipeline) fail(ctx context.Context, groups []*group, err error, log *logrus.Entry) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !translation.IsFatal(err) {
		return ctxErr
	}
	for _, g := range groups {
		if g.status == StatusTranslated {
			continue
		}
		g.status, g.err = StatusFailed, err
	}
	if translation.IsFatal(err) {
		return err
	}
	log.Errorf("batch failed: %v", err)
	return nil
}

// commit writes the successful groups of one (sub)batch in one transaction
func (p *Pipeline) commit(ctx context.Context, groups []*group, log *logrus.Entry) error {
	recs := make([]cache.Record, 0, len(groups))
	for _, g := range groups {
		if g.status != StatusTranslated {
			continue
		}
		recs = append(recs, cache.Record{
			Fingerprint:     g.fp,
			SourceText:      g.source,
			Translated:      g.text,
			SourceLang:      p.cfg.Pair.Source,
			TargetLang:      p.cfg.Pair.Target,
			Model:           p.cfg.Model,
			GlossaryVersion: p.glossary.Version(),
		})
	}
	if len(recs) == 0 {
		return nil
	}

	warnings, err := p.cache.PutBatch(ctx, recs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// not committed, the next run sends these again
			return ctxErr
		}
		log.Errorf("cache write failed: %v", err)
		p.mu.Lock()
		p.warns++
		p.mu.Unlock()
		return nil
	}

	if len(warnings) > 0 {
		p.mu.Lock()
		p.warns += len(warnings)
		p.mu.Unlock()
		// the stored translation wins so reruns stay stable
		stored := make(map[string]string, len(warnings))
		for _, w := range warnings {
			stored[w.Fingerprint] = w.Stored
		}
		for _, g := range groups {
			if s, ok := stored[g.fp]; ok {
				g.text = s
			}
		}
	}
	return nil
}
