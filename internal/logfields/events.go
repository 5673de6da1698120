package logfields

import "go.uber.org/zap"

func Event(val string) zap.Field {
	return zap.String("event", val)
}

func Dependency(val string) zap.Field {
	return zap.String("dependency", val)
}
