package safe

import (
	"DProject/logger"
)

// SafeGo starts a new goroutine that recovers from panic,
// so that panics don't crash the entire program.
func SafeGo(name string, f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[SafeGo] %s panic recovered: %v", name, r)
			}
		}()
		f()
	}()
}

// Recover 用于已经在协程里的场景：defer safe.Recover("xxx")
func Recover(name string) {
	if r := recover(); r != nil {
		logger.Errorf("[SafeGo] %s panic recovered: %v", name, r)
	}
}
