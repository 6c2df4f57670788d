// Package harness runs query scenarios: a query definition, a fixed set of
// records and a list of assertions on the result tree.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: breakfast_by_month
//	description: "Breakfast calories per month"
//	query: queries/meals.cue      # relative to the scenario file
//	query_name: breakfastByMonth  # required when the file defines several
//	records_file: data/meals.json # or inline `records:`
//	backend: sqlite               # memory (default) or sqlite
//	now: "2024-03-10"             # clock for periods without a base date
//	assertions:
//	  - type: labels
//	    labels: [Feb, Mar, Apr]
//	  - type: value
//	    path: [Feb, Eggs]
//	    value: 100
//
// # Assertion Types
//
//   - labels: the labels of the tree at path, in order
//   - value: the scalar at path, compared with a small tolerance
//   - node_count: the number of nodes in the whole result
//   - error: the run fails with a message containing `contains` and, when
//     set, the error code `code`
//
// A path is a list of group labels walked from the root. An empty path
// names the root.
//
// # Deterministic Testing
//
// Every run uses a fixed clock (scenario.now, or 2024-01-01) and sequential
// node ids, so formatted output can be compared against golden files with
// RunWithGolden. The sqlite backend loads the records into a fresh in-memory
// database under the query's source name.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/breakfast.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
