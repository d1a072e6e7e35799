// Package bot implements the conversational navigation engine: a per-chat
// finite state machine, the navigation controller and its collaborator
// boundary, and the reminder scheduler.
package bot

import (
	"strconv"
	"strings"
)

// State is the closed set of conversation states. The transition table only
// accepts states from this set; an action arriving in a state with no
// registered handler is ignored.
type State string

const (
	StateNone State = ""

	StateMainMenu         State = "main_menu"
	StateUsefulHabitMenu  State = "useful_habit_menu"
	StateHarmfulHabitMenu State = "harmful_habit_menu"
	StateHealthMenu       State = "health_menu"
	StateSportMenu        State = "sport_menu"
	StateNutritionMenu    State = "nutrition_menu"

	StateUpdateHabitsMenu State = "update_habits_menu"
	StateHabitsMenu       State = "habits_menu"        // delete target list
	StateHabitsChangeMenu State = "habits_change_menu" // edit target list
	StateHabitsChange     State = "habits_change"      // field picker
	StateChangeField      State = "change_field"       // awaiting new value

	StateTrackHabitMenu  State = "track_habit_menu"
	StateBeginTrackHabit State = "begin_track_habit"
	StateCeaseTrackHabit State = "cease_track_habit"
	StateExecution       State = "execution"
	StateExecutionHabit  State = "execution_habit" // which habit, completed
	StateNotCompleted    State = "not_completed"   // which habit, missed

	StateWaitingForHabitName   State = "waiting_for_habit_name"
	StateWaitingForDescription State = "waiting_for_description"
	StateWaitingForDays        State = "waiting_for_days"
	StateStatistics            State = "statistics"
)

// Action is a user input: a command, a button's callback code, or free text.
type Action string

const (
	ActionStart       Action = "/start"
	ActionOpenMenu    Action = "📝 Выбор привычек"
	ActionTracking    Action = "📅 Трекинг выполнения"
	ActionStatsButton Action = "📊 Статистика"

	ActionCancel       Action = "cancel"
	ActionBack         Action = "back"
	ActionUseful       Action = "useful"
	ActionHarmful      Action = "harmful"
	ActionTrack        Action = "track"
	ActionUpdateHabits Action = "update_habits"
	ActionOption       Action = "option"

	ActionHealth    Action = "health"
	ActionSport     Action = "sport"
	ActionNutrition Action = "nutrition"

	ActionChange Action = "change"
	ActionDelete Action = "delete"

	ActionBeginTrack   Action = "begin"
	ActionCeaseTrack   Action = "cease"
	ActionExecution    Action = "execution"
	ActionCompleted    Action = "completed"
	ActionNotCompleted Action = "not_completed"

	ActionFieldName        Action = "field:name"
	ActionFieldDescription Action = "field:description"
	ActionFieldTargetDays  Action = "field:target_days"
)

// presetNames maps preset callback codes to the habit name they stand for.
var presetNames = map[Action]string{
	"sleep":             "😴 Сон",
	"hydration":         "💧 Гидратация",
	"meditation":        "🧘‍♀️ Медитация",
	"strength_training": "🏋️‍♂️ Силовые тренировки",
	"running":           "🏃 Бег",
	"swimming":          "🏊 Плавание",
	"fruits_veggies":    "🥗 Овощи и фрукты",
	"breakfast":         "🍳 Завтрак",
	"less_sugar":        "🥤 Снижение сахара",
	"smoking":           "🚬 Отказ от курения",
	"alcohol":           "🍺 Отказ от алкоголя",
}

const habitActionPrefix = "habit:"

// HabitAction encodes a habit selection button.
func HabitAction(id uint) Action {
	return Action(habitActionPrefix + strconv.FormatUint(uint64(id), 10))
}

// parseHabitAction extracts the habit ID from a selection action.
func parseHabitAction(a Action) (uint, bool) {
	s, ok := strings.CutPrefix(string(a), habitActionPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
