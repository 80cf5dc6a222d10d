// Package tests contains integration tests for the branch sequence counter
package tests

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/openclerk/branch-erp/repository"
	testingutil "github.com/openclerk/branch-erp/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchCounter(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		counterRepo := repository.NewBranchCounterRepository(testDB.DB)
		ctx := context.Background()

		t.Run("FirstAllocationStartsAtOne", func(t *testing.T) {
			seq, err := counterRepo.Next(ctx, "DH")
			require.NoError(t, err)
			assert.Equal(t, int64(1), seq)

			seq, err = counterRepo.Next(ctx, "DH")
			require.NoError(t, err)
			assert.Equal(t, int64(2), seq)
		})

		t.Run("BranchesAreIsolated", func(t *testing.T) {
			seq, err := counterRepo.Next(ctx, "CTG")
			require.NoError(t, err)
			assert.Equal(t, int64(1), seq)

			seq, err = counterRepo.Next(ctx, "BOG")
			require.NoError(t, err)
			assert.Equal(t, int64(1), seq)

			// DH counter is unaffected by the other branches
			seq, err = counterRepo.Next(ctx, "DH")
			require.NoError(t, err)
			assert.Equal(t, int64(3), seq)
		})

		t.Run("CodeIsNormalized", func(t *testing.T) {
			seq, err := counterRepo.Next(ctx, "  ctg ")
			require.NoError(t, err)
			assert.Equal(t, int64(2), seq)
		})

		t.Run("EmptyCodeRejected", func(t *testing.T) {
			_, err := counterRepo.Next(ctx, "   ")
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrInvalidBranchCode)
		})

		t.Run("CurrentReadsWithoutConsuming", func(t *testing.T) {
			current, err := counterRepo.Current(ctx, "DH")
			require.NoError(t, err)
			assert.Equal(t, int64(3), current)

			// Unknown branch reads as zero
			current, err = counterRepo.Current(ctx, "SYL")
			require.NoError(t, err)
			assert.Equal(t, int64(0), current)

			// The read did not create a row that shifts the next allocation
			seq, err := counterRepo.Next(ctx, "SYL")
			require.NoError(t, err)
			assert.Equal(t, int64(1), seq)
		})

		t.Run("ConcurrentAllocationsAreUnique", func(t *testing.T) {
			const workers = 100

			var (
				mu        sync.Mutex
				sequences []int64
				wg        sync.WaitGroup
			)

			wg.Add(workers)
			for i := 0; i < workers; i++ {
				go func() {
					defer wg.Done()
					seq, err := counterRepo.Next(ctx, "RAJ")
					if err != nil {
						t.Errorf("allocation failed: %v", err)
						return
					}
					mu.Lock()
					sequences = append(sequences, seq)
					mu.Unlock()
				}()
			}
			wg.Wait()

			require.Len(t, sequences, workers)
			sort.Slice(sequences, func(i, j int) bool { return sequences[i] < sequences[j] })
			for i, seq := range sequences {
				assert.Equal(t, int64(i+1), seq, "sequence %d duplicated or skipped", seq)
			}
		})

		t.Run("StoreOutageConsumesNothing", func(t *testing.T) {
			before, err := counterRepo.Current(ctx, "RAJ")
			require.NoError(t, err)

			brokenDB, err := testDB.OpenExtraConnection()
			require.NoError(t, err)
			sqlDB, err := brokenDB.DB()
			require.NoError(t, err)
			require.NoError(t, sqlDB.Close())

			brokenRepo := repository.NewBranchCounterRepository(brokenDB)
			_, err = brokenRepo.Next(ctx, "RAJ")
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

			// The failed allocation left the counter untouched
			after, err := counterRepo.Current(ctx, "RAJ")
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})

		t.Run("RolledBackAllocationDoesNotLeak", func(t *testing.T) {
			before, err := counterRepo.Current(ctx, "KHL")
			require.NoError(t, err)
			assert.Equal(t, int64(0), before)

			// Allocate inside a transaction that rolls back
			err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				seq, err := counterRepo.Next(txCtx, "KHL")
				require.NoError(t, err)
				assert.Equal(t, int64(1), seq)
				return assert.AnError
			})
			require.Error(t, err)

			// The rollback released the number, so it is handed out again
			seq, err := counterRepo.Next(ctx, "KHL")
			require.NoError(t, err)
			assert.Equal(t, int64(1), seq)
		})

		return nil
	})
	require.NoError(t, err)
}
