package bot

import "fmt"

// Button is one pressable element; Action is what comes back when pressed.
type Button struct {
	Text   string
	Action Action
}

// Keyboard is a transport-agnostic keyboard descriptor. Rendering it into a
// concrete chat UI is the transport's job.
type Keyboard struct {
	Rows [][]Button
}

func row(buttons ...Button) []Button { return buttons }

func backRow() []Button {
	return row(Button{Text: "🔄 Назад", Action: ActionBack})
}

func MainMenuKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "📅 Трекинг выполнения", Action: ActionTracking}),
		row(
			Button{Text: "📊 Статистика", Action: ActionStatsButton},
			Button{Text: "📝 Выбор привычек", Action: ActionOpenMenu},
		),
	}}
}

func HabitChoiceKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "➕ Добавить полезную привычку", Action: ActionUseful}),
		row(Button{Text: "❌ Отказаться от вредной привычки", Action: ActionHarmful}),
		row(Button{Text: "🔍 Отслеживание привычек", Action: ActionTrack}),
		row(Button{Text: "⚙️ Редактировать привычки", Action: ActionUpdateHabits}),
		row(Button{Text: "❌ Отмена", Action: ActionCancel}),
	}}
}

func UsefulHabitKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "💪 Здоровье", Action: ActionHealth}),
		row(Button{Text: "🏃 Спорт", Action: ActionSport}),
		row(Button{Text: "🍏 Питание", Action: ActionNutrition}),
		row(Button{Text: "✍️ Свой вариант", Action: ActionOption}),
		backRow(),
	}}
}

func HealthHabitKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "😴 Сон", Action: "sleep"}),
		row(Button{Text: "💧 Гидратация", Action: "hydration"}),
		row(Button{Text: "🧘‍♀️ Медитация", Action: "meditation"}),
		row(Button{Text: "✍️ Свой вариант", Action: ActionOption}),
		backRow(),
	}}
}

func SportHabitKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "🏋️‍♂️ Силовые тренировки", Action: "strength_training"}),
		row(Button{Text: "🏃 Бег", Action: "running"}),
		row(Button{Text: "🏊 Плавание", Action: "swimming"}),
		row(Button{Text: "✍️ Свой вариант", Action: ActionOption}),
		backRow(),
	}}
}

func NutritionHabitKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "🥗 Овощи и фрукты", Action: "fruits_veggies"}),
		row(Button{Text: "🍳 Завтрак", Action: "breakfast"}),
		row(Button{Text: "🥤 Снижение сахара", Action: "less_sugar"}),
		row(Button{Text: "✍️ Свой вариант", Action: ActionOption}),
		backRow(),
	}}
}

func HarmfulHabitKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "🚬 Курение", Action: "smoking"}),
		row(Button{Text: "🍺 Алкоголь", Action: "alcohol"}),
		row(Button{Text: "✍️ Свой вариант", Action: ActionOption}),
		backRow(),
	}}
}

func UpdateHabitsKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "✏️ Изменить привычку", Action: ActionChange}),
		row(Button{Text: "❌ Удалить привычку", Action: ActionDelete}),
		backRow(),
	}}
}

func TrackMenuKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "▶️ Начать отслеживание", Action: ActionBeginTrack}),
		row(Button{Text: "⏹ Прекратить отслеживание", Action: ActionCeaseTrack}),
		row(Button{Text: "✅ Отметить выполнение", Action: ActionExecution}),
		backRow(),
	}}
}

func ExecutionKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "✅ Выполнено", Action: ActionCompleted}),
		row(Button{Text: "❌ Не выполнено", Action: ActionNotCompleted}),
		backRow(),
	}}
}

func FieldPickerKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{
		row(Button{Text: "Название", Action: ActionFieldName}),
		row(Button{Text: "Описание", Action: ActionFieldDescription}),
		row(Button{Text: "Срок (дней)", Action: ActionFieldTargetDays}),
		backRow(),
	}}
}

// HabitListKeyboard renders one button per habit. An empty list renders a
// placeholder button so the user still sees something pressable.
func HabitListKeyboard(habits []Habit) Keyboard {
	kb := Keyboard{}
	for _, h := range habits {
		kb.Rows = append(kb.Rows, row(Button{
			Text:   fmt.Sprintf("%s (%d/%d)", h.Name, h.TotalCompleted, h.TargetDays),
			Action: HabitAction(h.ID),
		}))
	}
	if len(kb.Rows) == 0 {
		kb.Rows = append(kb.Rows, row(Button{Text: "Привычек пока нет", Action: ActionBack}))
	}
	kb.Rows = append(kb.Rows, backRow())
	return kb
}

func BackOnlyKeyboard() Keyboard {
	return Keyboard{Rows: [][]Button{backRow()}}
}
