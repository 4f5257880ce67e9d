// Package server is a line-oriented TCP adapter for the dispatch engine.
//
// Each accepted connection gets its own engine session. Every line the
// client sends is one statement; every reply is one JSON object on its own
// line:
//
//	> SELECT @@port
//	< {"result":{"columns":[{"name":"@@port","type":"LONG"}],"rows":[[3306]]}}
//	> COMMIT
//	< {"error":{"code":1273,"sqlState":"HY000","message":"Syntax error: no rule matched 'COMMIT'"}}
//
// The adapter waits out the latency the engine decides before writing a
// reply. When the engine reports a configuration fault the adapter writes a
// {"fault":"..."} line and closes the connection.
package server
