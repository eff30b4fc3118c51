package event

// NodePaused is emitted when a behaviour transitions into the effectively
// paused state, whether by its own pause, an ancestor's, or a reparent.
type NodePaused struct {
	BehaviourID uint64
	Name        string
}

// NodeUnpaused is the inverse of NodePaused.
type NodeUnpaused struct {
	BehaviourID uint64
	Name        string
}

// SceneLoaded is emitted once an additive scene load has completed.
type SceneLoaded struct {
	Handle     int
	BuildIndex int
	AssetPath  string
}

// SceneUnloaded is emitted once a scene unload has completed.
type SceneUnloaded struct {
	BuildIndex int
	AssetPath  string
}
