package domain

// NodeKind — тип узла графа.
//
// Типы делятся на две группы:
//   - данные (text, image, video) — значение берётся из data узла;
//   - вычислительные (llm, crop, frames) — работа делегируется
//     внешним джобам с синхронным fallback.
type NodeKind string

const (
	// NodeKindText — текстовый ввод.
	NodeKindText NodeKind = "text"

	// NodeKindImage — загруженное изображение (URL).
	NodeKindImage NodeKind = "image"

	// NodeKindVideo — загруженное видео (URL).
	NodeKindVideo NodeKind = "video"

	// NodeKindLLM — inference языковой модели.
	NodeKindLLM NodeKind = "llm"

	// NodeKindCrop — кадрирование изображения.
	NodeKindCrop NodeKind = "crop"

	// NodeKindFrames — извлечение кадров из видео.
	NodeKindFrames NodeKind = "frames"
)

// HandleType — семантический тип порта.
type HandleType string

const (
	HandleText  HandleType = "text"
	HandleImage HandleType = "image"
	HandleVideo HandleType = "video"
	HandleAny   HandleType = "any"
)

// Accepts проверяет совместимость типов портов.
// Приёмник "any" принимает любой тип, иначе типы должны совпадать точно.
func (t HandleType) Accepts(source HandleType) bool {
	return t == HandleAny || t == source
}

// HandleSpec — описание одного порта узла.
type HandleSpec struct {
	// ID — идентификатор порта (например, "output", "user_message").
	ID string `json:"id"`

	// Type — семантический тип порта.
	Type HandleType `json:"type"`

	// Required — обязателен ли вход для выполнения узла.
	Required bool `json:"required,omitempty"`

	// FanIn — порт принимает несколько связей; строковые значения
	// собираются в упорядоченный список в порядке обнаружения связей.
	FanIn bool `json:"fanIn,omitempty"`

	// SourceKinds — декларативное ограничение на тип узла-источника.
	// Пустой список — источник любого типа.
	SourceKinds []NodeKind `json:"sourceKinds,omitempty"`
}

// AcceptsKind проверяет ограничение SourceKinds для узла-источника.
func (h HandleSpec) AcceptsKind(kind NodeKind) bool {
	if len(h.SourceKinds) == 0 {
		return true
	}
	for _, k := range h.SourceKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// KindSpec — контракт выполнения типа узла: входные и выходные порты.
type KindSpec struct {
	// Kind — тип узла.
	Kind NodeKind `json:"kind"`

	// Inputs — входные порты.
	Inputs []HandleSpec `json:"inputs"`

	// Outputs — выходные порты.
	Outputs []HandleSpec `json:"outputs"`

	// Compute — true для типов, делегирующих работу внешним джобам.
	Compute bool `json:"compute"`
}

// Input возвращает входной порт по идентификатору.
func (k KindSpec) Input(id string) (HandleSpec, bool) {
	for _, h := range k.Inputs {
		if h.ID == id {
			return h, true
		}
	}
	return HandleSpec{}, false
}

// Output возвращает выходной порт по идентификатору.
func (k KindSpec) Output(id string) (HandleSpec, bool) {
	for _, h := range k.Outputs {
		if h.ID == id {
			return h, true
		}
	}
	return HandleSpec{}, false
}

// kindCatalog — контракты всех поддерживаемых типов узлов.
// Порядок фиксирован: в нём каталог отдаётся через API.
var kindCatalog = []KindSpec{
	{
		Kind:    NodeKindText,
		Outputs: []HandleSpec{{ID: "output", Type: HandleText}},
	},
	{
		Kind:    NodeKindImage,
		Outputs: []HandleSpec{{ID: "output", Type: HandleImage}},
	},
	{
		Kind:    NodeKindVideo,
		Outputs: []HandleSpec{{ID: "output", Type: HandleVideo}},
	},
	{
		Kind: NodeKindLLM,
		Inputs: []HandleSpec{
			{ID: "user_message", Type: HandleText, Required: true},
			{ID: "system_message", Type: HandleText},
			{ID: "images", Type: HandleImage, FanIn: true},
		},
		Outputs: []HandleSpec{{ID: "output", Type: HandleText}},
		Compute: true,
	},
	{
		Kind: NodeKindCrop,
		Inputs: []HandleSpec{
			{ID: "image", Type: HandleImage, Required: true},
		},
		Outputs: []HandleSpec{{ID: "output", Type: HandleImage}},
		Compute: true,
	},
	{
		Kind: NodeKindFrames,
		Inputs: []HandleSpec{
			// Порт типизирован "any": реальное ограничение — источником
			// может быть только узел video (SourceKinds).
			{ID: "video", Type: HandleAny, Required: true, SourceKinds: []NodeKind{NodeKindVideo}},
		},
		Outputs: []HandleSpec{{ID: "output", Type: HandleImage}},
		Compute: true,
	},
}

// Kinds возвращает каталог контрактов всех типов узлов.
func Kinds() []KindSpec {
	out := make([]KindSpec, len(kindCatalog))
	copy(out, kindCatalog)
	return out
}

// KindOf возвращает контракт типа узла.
func KindOf(kind NodeKind) (KindSpec, bool) {
	for _, k := range kindCatalog {
		if k.Kind == kind {
			return k, true
		}
	}
	return KindSpec{}, false
}
