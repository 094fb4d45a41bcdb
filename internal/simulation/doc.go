// Package simulation drives SME policy scenarios through the yearly dimension
// pipeline.
//
// An Orchestrator owns one scenario's agent table and random stream. Each
// simulated year it applies every dimension stage in order, checks agent
// invariants after each stage, and folds the table into an AggregateRecord.
// The Runner resolves scenarios from configuration, runs them on a bounded
// worker pool with one isolated Orchestrator each, and hands completed
// trajectories to result sinks.
//
// Usage:
//
//	cfg := config.Default()
//	r := simulation.NewRunner(cfg, simulation.WithSink(store.NewMemorySink()))
//	report, err := r.Run(ctx, []string{"baseline", "pro_investment"})
//	if err != nil {
//	    // configuration error: nothing ran
//	}
//	for _, name := range report.Order {
//	    if res, ok := report.Results[name]; ok {
//	        fmt.Println(name, res.Records[len(res.Records)-1].MeanRevenue)
//	    }
//	}
package simulation
