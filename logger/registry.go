package logger

import "sync"

// Component names used by the pipeline.
const (
	ComponentSplitter     = "splitter"
	ComponentMerger       = "merger"
	ComponentOrchestrator = "orchestrator"
	ComponentProcess      = "process"
)

var components sync.Map // name -> *Logger

// Register stores l under name, replacing any earlier entry.
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger registered under name. Unknown names get the global
// logger tagged with the component.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults derives component loggers from the current global logger.
// With no names it covers the pipeline components. Setup calls it.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = []string{ComponentSplitter, ComponentMerger, ComponentOrchestrator, ComponentProcess}
	}
	global := GetGlobalLogger()
	for _, name := range names {
		Register(name, global.WithComponent(name))
	}
}
