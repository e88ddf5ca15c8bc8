package attack

import (
	"context"
	"fmt"
	"sync"
)

// Recovery is the secret recovered so far.
type Recovery struct {
	Secret []byte
	// Length is the secret length the engine aimed for.
	Length     int
	Complete   bool
	Collisions int
}

// Err returns ErrRecoveryIncomplete for a partial recovery.
func (r *Recovery) Err() error {
	if r.Complete {
		return nil
	}
	return fmt.Errorf("%w: recovered %d of %d bytes", ErrRecoveryIncomplete, len(r.Secret), r.Length)
}

// dictionary maps a ciphertext block to the candidate bytes producing it,
// lowest first.
type dictionary map[string][]byte

// Recover recovers secretLen bytes in order. For position i it pads the
// query so that secret byte i is the last byte of a block, then matches
// that block against a fresh dictionary of all 256 guesses appended to the
// bytes already known.
//
// A position with no match ends recovery early with a partial result. When
// several guesses match, the lowest byte wins.
func (b *Breaker) Recover(ctx context.Context, blockSize, secretLen int) (*Recovery, error) {
	steps := b.log()
	rec := &Recovery{Secret: make([]byte, 0, secretLen), Length: secretLen}
	steps.Appendf("Beginning byte-at-a-time recovery (%d bytes)", secretLen)

	for i := 0; i < secretLen; i++ {
		offset := len(b.Prefix) + i
		pad := blockSize - 1 - offset%blockSize
		index := (offset + pad) / blockSize

		ciphertext, err := b.query(ctx, pad)
		if err != nil {
			return nil, err
		}
		target := blockAt(ciphertext, index, blockSize)
		if target == nil {
			steps.Appendf("Target block %d missing at byte %d; likely end of secret reached", index, i+1)
			break
		}

		dict, err := b.buildDictionary(ctx, b.probe(pad, rec.Secret), index, blockSize)
		if err != nil {
			return nil, err
		}

		candidates := dict[string(target)]
		if len(candidates) == 0 {
			steps.Appendf("No matching byte found at byte %d; likely end of secret or padding reached", i+1)
			break
		}
		if len(candidates) > 1 {
			rec.Collisions++
			steps.Appendf("Dictionary collision at byte %d: %d candidates, keeping %s",
				i+1, len(candidates), DisplayByte(candidates[0]))
		}

		rec.Secret = append(rec.Secret, candidates[0])
		steps.Appendf("Recovered byte %d: %s", i+1, DisplayByte(candidates[0]))
	}

	rec.Complete = len(rec.Secret) == secretLen
	if rec.Complete {
		steps.Appendf("Recovery complete: %d/%d bytes", len(rec.Secret), secretLen)
	} else {
		steps.Appendf("Recovery stopped early: %d/%d bytes", len(rec.Secret), secretLen)
	}
	return rec, nil
}

// buildDictionary queries probe || v for every byte v and indexes block
// index of each ciphertext.
func (b *Breaker) buildDictionary(ctx context.Context, probe []byte, index, blockSize int) (dictionary, error) {
	blocks, err := b.dictionaryBlocks(ctx, probe, index, blockSize)
	if err != nil {
		return nil, err
	}

	dict := make(dictionary, len(blocks))
	for v, block := range blocks {
		if block == nil {
			continue
		}
		key := string(block)
		dict[key] = append(dict[key], byte(v))
	}
	return dict, nil
}

func (b *Breaker) dictionaryBlocks(ctx context.Context, probe []byte, index, blockSize int) ([][]byte, error) {
	blocks := make([][]byte, 256)
	guess := func(ctx context.Context, v int) error {
		// The full slice expression forces append to copy.
		ciphertext, err := b.Oracle.Encrypt(ctx, append(probe[:len(probe):len(probe)], byte(v)))
		if err != nil {
			return err
		}
		blocks[v] = blockAt(ciphertext, index, blockSize)
		return nil
	}

	if b.Workers <= 1 {
		for v := range blocks {
			if err := guess(ctx, v); err != nil {
				return nil, err
			}
		}
		return blocks, nil
	}

	values := make(chan int, len(blocks))
	for v := range blocks {
		values <- v
	}
	close(values)

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < b.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range values {
				if workerCtx.Err() != nil {
					return
				}
				if err := guess(workerCtx, v); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return blocks, nil
}
