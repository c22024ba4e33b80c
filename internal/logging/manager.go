package logging

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Компоненты генератора, пишущие в отдельные файлы логов
const (
	ComponentRivers  = "rivers"
	ComponentWorld   = "world"
	ComponentStorage = "storage"
	ComponentCache   = "cache"
	ComponentEvents  = "events"
	ComponentAPI     = "api"
)

// LoggerManager хранит логгеры компонентов и переопределения их уровней.
// Переопределение действует и на уже созданный логгер, и на созданный позже.
type LoggerManager struct {
	mu        sync.Mutex
	loggers   map[string]*Logger
	overrides map[string]LogLevel
}

var (
	globalManager = &LoggerManager{
		loggers:   make(map[string]*Logger),
		overrides: make(map[string]LogLevel),
	}
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	return globalManager
}

// GetLogger возвращает логгер компонента, при первом обращении открывая его файл
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать логгер %s: %w", component, err)
	}
	if level, ok := lm.overrides[component]; ok {
		logger.SetLevels(level, level)
	}

	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger никогда не возвращает nil: если файл открыть не удалось,
// компонент пишет только в консоль.
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err == nil {
		return logger
	}

	opts := currentOptions()
	logger = newConsoleLogger(component, opts.Console, opts.ConsoleLevel)
	logger.Warn("файл логов недоступен, пишем только в консоль: %v", err)
	return logger
}

// SetComponentLevel задает минимальный уровень консоли и файла для компонента.
// Так, например, включается TRACE для роста рек без шума от остальных компонентов.
func (lm *LoggerManager) SetComponentLevel(component string, level LogLevel) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.overrides[component] = level
	if logger, ok := lm.loggers[component]; ok {
		logger.SetLevels(level, level)
	}
}

// ApplyLevels применяет переопределения вида {"rivers": "TRACE", "api": "WARN"}
func (lm *LoggerManager) ApplyLevels(levels map[string]string) {
	for component, name := range levels {
		lm.SetComponentLevel(strings.TrimSpace(component), ParseLevel(name))
	}
}

// Components возвращает отсортированные имена открытых логгеров
func (lm *LoggerManager) Components() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	components := make([]string, 0, len(lm.loggers))
	for component := range lm.loggers {
		components = append(components, component)
	}
	sort.Strings(components)
	return components
}

// CloseAll закрывает файлы всех компонентов и забывает логгеры.
// Следующий GetLogger откроет файл заново с текущими параметрами.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("логгер %s: %w", component, err))
		}
	}
	lm.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

// GetComponentLogger возвращает логгер компонента
func GetComponentLogger(component string) *Logger {
	return globalManager.MustGetLogger(component)
}

func GetRiversLogger() *Logger { return GetComponentLogger(ComponentRivers) }

func GetWorldLogger() *Logger { return GetComponentLogger(ComponentWorld) }

func GetStorageLogger() *Logger { return GetComponentLogger(ComponentStorage) }

func GetAPILogger() *Logger { return GetComponentLogger(ComponentAPI) }
