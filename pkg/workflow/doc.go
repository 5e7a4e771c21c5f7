/*
Package workflow runs small directed graphs of named steps over a typed state.

A graph is declared with a Builder, validated once by Compile and then run any
number of times. Each node returns a patch that the graph's merge function
folds into the state; the outgoing edge of the node (fixed, or chosen by a
router) names the next node until End is reached.

	b := workflow.NewBuilder[State, Patch]("note", Merge)
	b.AddNode("decide", decide).
		AddNode("title", title).
		AddConditionalEdge("decide", route, "title", workflow.End).
		AddEdge("title", workflow.End).
		SetEntry("decide")
	g, err := b.Compile()

Compile rejects graphs with nodes that are unreachable, nodes without an
outgoing edge, edges to unknown nodes and nodes that can never reach End.
Routers must declare every destination they may return; returning anything
else fails the run with ErrUnroutedBranch.

When a CheckpointStore is configured the state is saved after every node,
keyed by the caller's thread id, and Resume continues from the saved node.
*/
package workflow
