// Package importers разбирает выгрузки задач из внешних скордбордов
// в единый список для массового создания задач.
package importers

// ParsedTask — задача, извлечённая из внешнего формата.
type ParsedTask struct {
	Title       string
	Tags        []string
	Description string
}

// Parser распознаёт и разбирает один внешний формат.
type Parser interface {
	// Name — имя формата для выбора пользователем.
	Name() string
	// Hint подсказывает, что именно вставлять.
	Hint() string
	// IsValid быстро проверяет, похож ли ввод на этот формат.
	IsValid(raw string) bool
	// Parse извлекает задачи; невалидные записи пропускаются.
	Parse(raw string) []ParsedTask
}

// Registry — парсеры в порядке приоритета автоопределения.
func Registry() []Parser {
	return []Parser{
		CTFdParser{},
		RCTFParser{},
		RawParser{},
	}
}

// Guess возвращает первый парсер, считающий ввод валидным.
func Guess(raw string) (Parser, bool) {
	for _, p := range Registry() {
		if p.IsValid(raw) {
			return p, true
		}
	}
	return nil, false
}

// ByName ищет парсер по имени формата.
func ByName(name string) (Parser, bool) {
	for _, p := range Registry() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}
