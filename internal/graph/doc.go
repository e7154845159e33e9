// Package graph defines the immutable workflow graph model: typed work
// units (nodes) connected by conditioned transitions (edges), with one
// entry point, pause points awaiting external input, and terminal points.
//
// A graph is pure data plus one validation operation. Validate reports
// every structural problem as a list; callers must check the list is empty
// before handing the graph to the execution engine. Cycles are allowed
// deliberately (retry-style flows) and are not rejected here; the engine
// bounds them at run time with a step budget.
package graph
