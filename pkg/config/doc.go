// Package config loads mysqlmock fixtures.
//
// A fixture is a YAML or JSON document with initial globals, engine
// settings and an ordered list of rules:
//
//	version: "1"
//	settings:
//	  defaultLatency: 5ms
//	  onSequenceMismatch: fallthrough
//	globals:
//	  cluster_name: test
//	rules:
//	  - name: port
//	    exact: "select @@port"
//	    result:
//	      columns: [{name: "@@port", type: LONG}]
//	      rows: [["{{ globalOr('port', 3306) }}"]]
//	  - name: trx
//	    sequence:
//	      steps:
//	        - pattern: "SELECT .*"
//	          result: {columns: [{name: n, type: LONGLONG}], rows: [["{{ calls }}"]]}
//	        - exact: COMMIT
//	          ok: {}
//
// Every document is checked against an embedded JSON Schema before it is
// decoded, then Build compiles patterns and expressions so that a broken
// fixture is reported before the server accepts a connection:
//
//	f, err := config.LoadGlob("fixtures/**/*.yaml")
//	if err != nil {
//	    return err
//	}
//	c, err := config.Build(f)
//	if err != nil {
//	    return err
//	}
//	eng := c.NewEngine(engine.WithLogger(logger))
package config
