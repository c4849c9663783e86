// Package preprocess turns raw tabular datasets into model-ready numeric
// matrices, and does so consistently: everything learned from a training
// set is captured in serializable tables that replay the exact same
// transformation on any later dataset.
//
// # Architecture
//
// The package is organized into four stages plus an orchestrator:
//
// 1. Normalizer: converts text columns to categoricals with a deterministic level order
// 2. Encoder: replaces categories with dense integer codes, fitting or reusing a mapping table
// 3. Reconciler: relabels categories unseen during fitting to the sentinel category
// 4. Imputer: fills missing numerics with fitted medians and appends missingness indicators
//
// # Usage
//
// Fitting on a training set:
//
//	pipe := preprocess.New(logger, preprocess.Config{})
//	res, err := pipe.Fit(ctx, trainSet, "price")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// res.Mappings and res.Imputations capture everything learned.
//
// Replaying on new data:
//
//	res, err := pipe.Transform(ctx, testSet, "price", res.Mappings, res.Imputations)
//
// # Data Flow
//
//	Dataset → Normalizer → [Reconciler] → Encoder → Imputer → feature matrix + target vector
//
// The reconciler only runs in transform mode; fit mode has nothing to
// reconcile against. All stages mutate the dataset in place and run
// synchronously on the calling goroutine.
//
// # Consistency Guarantees
//
// Codes are dense, start at 1 and follow the sorted order of training
// categories; 0 is reserved for missing values and the sentinel category
// always holds the highest code. A transform with fitted tables never
// recomputes statistics, with one observable exception: a column that has
// missing values at transform time but no fitted statistic falls back to
// its own median, which is logged, counted and reported in the result.
package preprocess
