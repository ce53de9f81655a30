package supervisor

import (
	"bytes"
	"sync"

	"github.com/libreassistant/poco/pkg/logger"
)

// logSink forwards a plugin's output stream to the daemon log line by line.
// Partial lines are buffered until the next write completes them.
type logSink struct {
	id     string
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func newLogSink(id, stream string) *logSink {
	return &logSink{id: id, stream: stream}
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(p)
	for {
		line, err := s.buf.ReadString('\n')
		if err != nil {
			// Partial line, keep it for the next write.
			s.buf.WriteString(line)
			break
		}
		s.emit(line[:len(line)-1])
	}

	return len(p), nil
}

// Flush emits any buffered partial line. Called once the process exits.
func (s *logSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf.Len() == 0 {
		return
	}
	s.emit(s.buf.String())
	s.buf.Reset()
}

func (s *logSink) emit(line string) {
	if line == "" {
		return
	}
	if s.stream == "stderr" {
		logger.WarnX("plugin", "[%s] %s", s.id, line)
		return
	}
	logger.InfoX("plugin", "[%s] %s", s.id, line)
}
