package models

// ExerciseType is the display metadata for an exercise type tag.
type ExerciseType struct {
	Tag   string `json:"tag"`
	Icon  string `json:"icon"`
	Label string `json:"label"`
}

var unknownExerciseType = ExerciseType{Tag: "other", Icon: "💪", Label: "Exercise"}

var exerciseTypes = map[string]ExerciseType{
	"warmup":     {Tag: "warmup", Icon: "🔥", Label: "Warm-up"},
	"strength":   {Tag: "strength", Icon: "🏋️", Label: "Strength"},
	"cardio":     {Tag: "cardio", Icon: "🏃", Label: "Cardio"},
	"hiit":       {Tag: "hiit", Icon: "⚡", Label: "HIIT"},
	"core":       {Tag: "core", Icon: "🎯", Label: "Core"},
	"cooldown":   {Tag: "cooldown", Icon: "❄️", Label: "Cool-down"},
	"stretch":    {Tag: "stretch", Icon: "🧘", Label: "Stretch"},
	"static":     {Tag: "static", Icon: "⏱️", Label: "Static hold"},
	"functional": {Tag: "functional", Icon: "🤸", Label: "Functional"},
}

// LookupExerciseType returns the registry entry for tag, or the generic
// entry for tags the registry does not know.
func LookupExerciseType(tag string) ExerciseType {
	if t, ok := exerciseTypes[tag]; ok {
		return t
	}
	return unknownExerciseType
}
