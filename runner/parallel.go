package runner

import (
	"context"

	"github.com/ethereum-optimism/infra/op-harness/types"
	"github.com/sourcegraph/conc/pool"
)

// runConcurrent starts the concurrent group in registration order on a
// bounded pool and waits for every test, including its bracket, to finish
func (st *run) runConcurrent(ctx context.Context, tests []types.Declaration) {
	if len(tests) == 0 {
		return
	}

	concurrency := determineConcurrency(st.concurrency, len(tests))
	st.log.Debug("Starting concurrent group", "tests", len(tests), "concurrency", concurrency)

	p := pool.New().WithMaxGoroutines(concurrency)
	for _, test := range tests {
		p.Go(func() {
			st.runTest(ctx, test)
		})
	}
	p.Wait()
}
