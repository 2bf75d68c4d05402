package event

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type EventLogData struct {
	Time    int64  `json:"time"`
	Service string `json:"service"`
	Action  string `json:"action"`
	Data    string `json:"data"`
}

const (
	RabbitMQInLogFile  string = "in.log"
	RabbitMQOutLogFile string = "out.log"
)

// Journal appends every consumed and published event as a JSON line.
// A nil Journal records nothing.
type Journal struct {
	mu  sync.Mutex
	in  *os.File
	out *os.File
}

// OpenJournal opens in.log and out.log under dir.
func OpenJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("event journal: %w", err)
	}

	in, err := os.OpenFile(filepath.Join(dir, RabbitMQInLogFile), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("event journal: %w", err)
	}
	out, err := os.OpenFile(filepath.Join(dir, RabbitMQOutLogFile), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("event journal: %w", err)
	}

	return &Journal{in: in, out: out}, nil
}

func (j *Journal) In(service, action string, data []byte) {
	if j == nil {
		return
	}
	j.write(j.in, service, action, data)
}

func (j *Journal) Out(service, action string, data []byte) {
	if j == nil {
		return
	}
	j.write(j.out, service, action, data)
}

func (j *Journal) write(file *os.File, service, action string, data []byte) {
	eventJson, _ := json.Marshal(EventLogData{
		Time:    time.Now().UnixMicro(),
		Service: service,
		Action:  action,
		Data:    string(data),
	})

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := file.Write(append(eventJson, '\n')); err != nil {
		log.Printf("event journal: %v", err)
	}
}

func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	inErr := j.in.Close()
	if err := j.out.Close(); err != nil {
		return err
	}
	return inErr
}
