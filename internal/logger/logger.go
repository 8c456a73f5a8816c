package logger

import (
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	fileMutex sync.Mutex
	Log       = zap.NewNop()
	logFile   *os.File
)

func LogINFO(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

func LogERROR(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

type lockedFile struct {
	file *os.File
}

func (lf *lockedFile) Write(p []byte) (n int, err error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()
	return lf.file.Write(p)
}

func (lf *lockedFile) Sync() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()
	return lf.file.Sync()
}

// InitLogger настраивает глобальный логгер. Пустой путь означает stdout.
func InitLogger(path, level string) {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		log.Printf("Unknown log level %q, using info", level)
		lvl = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			log.Printf("Failed to open log file: %v. We will use standard output", err)
		} else {
			logFile = f
			sink = &lockedFile{file: f}
		}
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), sink, lvl)
	Log = zap.New(core, zap.AddCaller())
}

func CloseLogger() {
	_ = Log.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
