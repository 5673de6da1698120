package logfields

import "go.uber.org/zap"

func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func Tag(val string) zap.Field {
	return zap.String("git.tag", val)
}

func Revision(val string) zap.Field {
	return zap.String("git.revision", val)
}

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}
