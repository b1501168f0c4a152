package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Window framebuffer resized.
	/* Context usage:
	 * width, height := data.Data.U32[0], data.Data.U32[1]
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x02
)

type EventContext struct {
	Type SystemEventCode
	Data struct {
		U32 [4]uint32
		F64 [2]float64
	}
}

type EventCallback func(context EventContext)

type eventSystem struct {
	mu        sync.RWMutex
	listeners map[SystemEventCode][]EventCallback
}

var eventState *eventSystem
var onceEvents sync.Once

func EventSystemInitialize() bool {
	onceEvents.Do(func() {
		eventState = &eventSystem{
			listeners: make(map[SystemEventCode][]EventCallback),
		}
	})
	return eventState != nil
}

func EventRegister(code SystemEventCode, callback EventCallback) {
	if eventState == nil {
		return
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	eventState.listeners[code] = append(eventState.listeners[code], callback)
}

// EventFire invokes every listener registered for the context's code,
// on the caller's goroutine and in registration order.
func EventFire(context EventContext) {
	if eventState == nil {
		return
	}
	eventState.mu.RLock()
	callbacks := make([]EventCallback, len(eventState.listeners[context.Type]))
	copy(callbacks, eventState.listeners[context.Type])
	eventState.mu.RUnlock()

	for _, cb := range callbacks {
		cb(context)
	}
}
