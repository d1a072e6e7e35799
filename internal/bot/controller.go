package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/habitbot/habitbot/internal/errs"
	"github.com/habitbot/habitbot/internal/observability"
)

const (
	defaultTargetDays = 21

	msgGenericFailure = "Что-то пошло не так. Попробуйте снова позже."
	msgChooseAction   = "Выберите действие:"
	msgChooseHabit    = "Выберите привычку:"
	msgAlreadyLogged  = "Эта привычка уже отмечена за сегодня."
)

// UIUpdate is what the controller hands back to the transport layer: text to
// show, a keyboard descriptor to render, and the state the session ended in.
type UIUpdate struct {
	Text        string
	Keyboard    *Keyboard
	TargetState State
}

type handlerFunc func(ctx context.Context, s *Session, action Action) (UIUpdate, error)

// Controller maps user actions onto state transitions. Every collaborator
// call goes through callWithAuth, which re-authenticates once on an expired
// access token and retries the same call exactly once.
type Controller struct {
	sessions *SessionStore
	api      Collaborator
	logger   *slog.Logger
	now      func() time.Time

	transitions map[State]map[Action]handlerFunc
	textInput   map[State]handlerFunc
	backTargets map[State]backTarget
}

type backTarget struct {
	state State
	kb    func() Keyboard
}

func NewController(sessions *SessionStore, api Collaborator, logger *slog.Logger) *Controller {
	c := &Controller{
		sessions: sessions,
		api:      api,
		logger:   logger,
		now:      time.Now,
	}
	c.registerTransitions()
	c.registerTextInput()
	c.registerBackTargets()
	return c
}

func (c *Controller) registerTransitions() {
	c.transitions = map[State]map[Action]handlerFunc{
		StateMainMenu: {
			ActionUseful:       c.switchTo(StateUsefulHabitMenu, msgChooseAction, UsefulHabitKeyboard),
			ActionHarmful:      c.switchTo(StateHarmfulHabitMenu, msgChooseAction, HarmfulHabitKeyboard),
			ActionTrack:        c.switchTo(StateTrackHabitMenu, msgChooseAction, TrackMenuKeyboard),
			ActionUpdateHabits: c.switchTo(StateUpdateHabitsMenu, msgChooseAction, UpdateHabitsKeyboard),
		},
		StateUsefulHabitMenu: {
			ActionHealth:    c.switchTo(StateHealthMenu, msgChooseAction, HealthHabitKeyboard),
			ActionSport:     c.switchTo(StateSportMenu, msgChooseAction, SportHabitKeyboard),
			ActionNutrition: c.switchTo(StateNutritionMenu, msgChooseAction, NutritionHabitKeyboard),
			ActionOption:    c.promptHabitName(),
		},
		StateHealthMenu:       {ActionOption: c.promptHabitName()},
		StateSportMenu:        {ActionOption: c.promptHabitName()},
		StateNutritionMenu:    {ActionOption: c.promptHabitName()},
		StateHarmfulHabitMenu: {ActionOption: c.promptHabitName()},
		StateUpdateHabitsMenu: {
			ActionChange: c.showHabitList(StateHabitsChangeMenu),
			ActionDelete: c.showHabitList(StateHabitsMenu),
		},
		StateHabitsChange: {
			ActionFieldName:        c.promptFieldValue(ActionFieldName, "Введите новое название:"),
			ActionFieldDescription: c.promptFieldValue(ActionFieldDescription, "Введите новое описание:"),
			ActionFieldTargetDays:  c.promptFieldValue(ActionFieldTargetDays, "Введите новый срок в днях:"),
		},
		StateTrackHabitMenu: {
			ActionBeginTrack: c.showHabitList(StateBeginTrackHabit),
			ActionCeaseTrack: c.showHabitList(StateCeaseTrackHabit),
			ActionExecution:  c.switchTo(StateExecution, msgChooseAction, ExecutionKeyboard),
		},
		StateExecution: {
			ActionCompleted:    c.showUnloggedList(StateExecutionHabit),
			ActionNotCompleted: c.showUnloggedList(StateNotCompleted),
		},
	}
}

func (c *Controller) registerTextInput() {
	c.textInput = map[State]handlerFunc{
		StateUsefulHabitMenu:  c.handlePreset,
		StateHealthMenu:       c.handlePreset,
		StateSportMenu:        c.handlePreset,
		StateNutritionMenu:    c.handlePreset,
		StateHarmfulHabitMenu: c.handlePreset,

		StateWaitingForHabitName:   c.handleNameInput,
		StateWaitingForDescription: c.handleDescriptionInput,
		StateWaitingForDays:        c.handleDaysInput,
		StateChangeField:           c.handleFieldValueInput,

		StateHabitsMenu:       c.handleDeletePick,
		StateHabitsChangeMenu: c.handleChangePick,
		StateBeginTrackHabit:  c.handleTrackPick(true),
		StateCeaseTrackHabit:  c.handleTrackPick(false),
		StateExecutionHabit:   c.handleLogPick(true),
		StateNotCompleted:     c.handleLogPick(false),
	}
}

func (c *Controller) registerBackTargets() {
	c.backTargets = map[State]backTarget{
		StateUsefulHabitMenu:  {StateMainMenu, HabitChoiceKeyboard},
		StateHarmfulHabitMenu: {StateMainMenu, HabitChoiceKeyboard},
		StateHealthMenu:       {StateUsefulHabitMenu, UsefulHabitKeyboard},
		StateSportMenu:        {StateUsefulHabitMenu, UsefulHabitKeyboard},
		StateNutritionMenu:    {StateUsefulHabitMenu, UsefulHabitKeyboard},

		StateUpdateHabitsMenu: {StateMainMenu, HabitChoiceKeyboard},
		StateHabitsMenu:       {StateUpdateHabitsMenu, UpdateHabitsKeyboard},
		StateHabitsChangeMenu: {StateUpdateHabitsMenu, UpdateHabitsKeyboard},
		StateHabitsChange:     {StateUpdateHabitsMenu, UpdateHabitsKeyboard},
		StateChangeField:      {StateHabitsChange, FieldPickerKeyboard},

		StateTrackHabitMenu:  {StateMainMenu, HabitChoiceKeyboard},
		StateBeginTrackHabit: {StateTrackHabitMenu, TrackMenuKeyboard},
		StateCeaseTrackHabit: {StateTrackHabitMenu, TrackMenuKeyboard},
		StateExecution:       {StateTrackHabitMenu, TrackMenuKeyboard},
		StateExecutionHabit:  {StateExecution, ExecutionKeyboard},
		StateNotCompleted:    {StateExecution, ExecutionKeyboard},

		StateWaitingForHabitName:   {StateUsefulHabitMenu, UsefulHabitKeyboard},
		StateWaitingForDescription: {StateWaitingForHabitName, BackOnlyKeyboard},
		StateWaitingForDays:        {StateWaitingForDescription, BackOnlyKeyboard},
		StateStatistics:            {StateMainMenu, HabitChoiceKeyboard},
	}
}

// OnAction is the single entry point for the transport layer. Actions for
// the same chat must be delivered one at a time; the Dispatcher takes care
// of that.
func (c *Controller) OnAction(ctx context.Context, chatID int64, username string, action Action) UIUpdate {
	if action == ActionStart {
		return c.handleStart(ctx, chatID, username)
	}

	s, gen := c.sessions.Snapshot(chatID, username)

	if action == ActionCancel {
		c.sessions.Reset(chatID)
		observability.RecordBotAction(ctx, string(s.State), "cancel")
		return UIUpdate{Text: "Действие отменено.", Keyboard: kb(MainMenuKeyboard()), TargetState: StateMainMenu}
	}

	h := c.resolve(s.State, action)
	if h == nil {
		observability.RecordBotAction(ctx, string(s.State), "ignored")
		return UIUpdate{TargetState: s.State}
	}

	update, err := h(ctx, &s, action)
	if err != nil {
		c.logger.Warn("bot action failed",
			"chat_id", chatID,
			"state", string(s.State),
			"action", string(action),
			"error", err)
		observability.RecordBotAction(ctx, string(s.State), "error")
		if errors.Is(err, errs.ErrAlreadyExists) {
			return UIUpdate{Text: msgAlreadyLogged, TargetState: s.State}
		}
		return UIUpdate{Text: msgGenericFailure, TargetState: s.State}
	}

	if !c.sessions.Commit(chatID, s, gen) {
		// Cancelled mid-flight; the late result must not resurrect the session.
		observability.RecordBotAction(ctx, string(s.State), "discarded")
		return UIUpdate{TargetState: StateMainMenu}
	}
	observability.RecordBotAction(ctx, string(s.State), "ok")
	return update
}

// resolve picks the handler for (state, action): exact transitions first,
// then the context-sensitive back table, then the state's free-input handler.
func (c *Controller) resolve(state State, action Action) handlerFunc {
	if h, ok := c.transitions[state][action]; ok {
		return h
	}
	if action == ActionBack {
		if bt, ok := c.backTargets[state]; ok {
			return c.switchTo(bt.state, c.backText(bt.state), bt.kb)
		}
		return nil
	}
	if action == ActionOpenMenu {
		return c.switchTo(StateMainMenu, msgChooseAction, HabitChoiceKeyboard)
	}
	if action == ActionTracking {
		return c.switchTo(StateTrackHabitMenu, msgChooseAction, TrackMenuKeyboard)
	}
	if action == ActionStatsButton {
		return c.handleStatistics
	}
	return c.textInput[state]
}

func (c *Controller) backText(target State) string {
	switch target {
	case StateWaitingForHabitName:
		return "Введите название привычки:"
	case StateWaitingForDescription:
		return "Введите описание привычки:"
	default:
		return msgChooseAction
	}
}

func (c *Controller) handleStart(ctx context.Context, chatID int64, username string) UIUpdate {
	s, gen := c.sessions.Snapshot(chatID, username)
	creds := sessionCredentials(&s)

	pair, err := c.api.Authenticate(ctx, creds)
	if err == nil {
		s.AccessToken = pair.AccessToken
		s.RefreshToken = pair.RefreshToken
		s.State = StateMainMenu
		c.sessions.Commit(chatID, s, gen)
		return UIUpdate{
			Text:        fmt.Sprintf("Добро пожаловать обратно, %s!", username),
			Keyboard:    kb(MainMenuKeyboard()),
			TargetState: StateMainMenu,
		}
	}

	pair, regErr := c.api.Register(ctx, creds)
	if regErr != nil {
		c.logger.Error("bot start failed",
			"chat_id", chatID,
			"auth_error", err,
			"register_error", regErr)
		c.sessions.Clear(chatID)
		return UIUpdate{Text: "Регистрация не удалась. Попробуйте снова позже.", TargetState: StateNone}
	}
	s.AccessToken = pair.AccessToken
	s.RefreshToken = pair.RefreshToken
	s.State = StateMainMenu
	c.sessions.Commit(chatID, s, gen)
	return UIUpdate{
		Text:        "Вы успешно зарегистрированы!",
		Keyboard:    kb(MainMenuKeyboard()),
		TargetState: StateMainMenu,
	}
}

// switchTo builds a handler that moves to a fixed state with a fixed keyboard.
func (c *Controller) switchTo(target State, text string, keyboard func() Keyboard) handlerFunc {
	return func(_ context.Context, s *Session, _ Action) (UIUpdate, error) {
		s.State = target
		return UIUpdate{Text: text, Keyboard: kb(keyboard()), TargetState: target}, nil
	}
}

func (c *Controller) promptHabitName() handlerFunc {
	return func(_ context.Context, s *Session, _ Action) (UIUpdate, error) {
		s.Form = HabitForm{}
		s.State = StateWaitingForHabitName
		return UIUpdate{Text: "Введите название привычки:", Keyboard: kb(BackOnlyKeyboard()), TargetState: s.State}, nil
	}
}

// handlePreset creates a habit straight from a preset button, skipping the
// form flow.
func (c *Controller) handlePreset(ctx context.Context, s *Session, action Action) (UIUpdate, error) {
	name, ok := presetNames[action]
	if !ok {
		return UIUpdate{TargetState: s.State}, nil
	}
	req := CreateHabitRequest{Name: name, TargetDays: defaultTargetDays}
	habit, err := callWithAuth(ctx, c, s, func(token string) (Habit, error) {
		return c.api.CreateHabit(ctx, token, req)
	})
	if err != nil {
		return UIUpdate{}, err
	}
	s.State = StateMainMenu
	return UIUpdate{
		Text:        fmt.Sprintf("Привычка '%s' добавлена!", habit.Name),
		Keyboard:    kb(MainMenuKeyboard()),
		TargetState: StateMainMenu,
	}, nil
}

func (c *Controller) handleNameInput(_ context.Context, s *Session, action Action) (UIUpdate, error) {
	s.Form.Name = strings.TrimSpace(string(action))
	s.State = StateWaitingForDescription
	return UIUpdate{Text: "Введите описание привычки:", Keyboard: kb(BackOnlyKeyboard()), TargetState: s.State}, nil
}

func (c *Controller) handleDescriptionInput(_ context.Context, s *Session, action Action) (UIUpdate, error) {
	s.Form.Description = strings.TrimSpace(string(action))
	s.State = StateWaitingForDays
	return UIUpdate{Text: "Сколько дней будем закреплять привычку?", Keyboard: kb(BackOnlyKeyboard()), TargetState: s.State}, nil
}

// handleDaysInput closes the form flow with the single durable write. A day
// count that does not parse falls back to the default instead of rejecting.
func (c *Controller) handleDaysInput(ctx context.Context, s *Session, action Action) (UIUpdate, error) {
	days, err := strconv.Atoi(strings.TrimSpace(string(action)))
	if err != nil || days <= 0 {
		days = defaultTargetDays
	}
	req := CreateHabitRequest{
		Name:        s.Form.Name,
		Description: s.Form.Description,
		TargetDays:  days,
	}
	habit, err := callWithAuth(ctx, c, s, func(token string) (Habit, error) {
		return c.api.CreateHabit(ctx, token, req)
	})
	if err != nil {
		return UIUpdate{}, err
	}
	s.Form = HabitForm{}
	s.State = StateMainMenu
	return UIUpdate{
		Text:        fmt.Sprintf("Привычка '%s' добавлена! Цель: %d дней.", habit.Name, habit.TargetDays),
		Keyboard:    kb(MainMenuKeyboard()),
		TargetState: StateMainMenu,
	}, nil
}

// showHabitList fetches the user's habits and renders one button per habit.
func (c *Controller) showHabitList(target State) handlerFunc {
	return func(ctx context.Context, s *Session, _ Action) (UIUpdate, error) {
		habits, err := callWithAuth(ctx, c, s, func(token string) ([]Habit, error) {
			return c.api.ListHabits(ctx, token)
		})
		if err != nil {
			return UIUpdate{}, err
		}
		s.State = target
		return UIUpdate{Text: msgChooseHabit, Keyboard: kb(HabitListKeyboard(habits)), TargetState: target}, nil
	}
}

// showUnloggedList is showHabitList restricted to habits without a log for
// today.
func (c *Controller) showUnloggedList(target State) handlerFunc {
	return func(ctx context.Context, s *Session, _ Action) (UIUpdate, error) {
		asOf := c.now().UTC()
		habits, err := callWithAuth(ctx, c, s, func(token string) ([]Habit, error) {
			return c.api.ListUnlogged(ctx, token, asOf)
		})
		if err != nil {
			return UIUpdate{}, err
		}
		s.State = target
		return UIUpdate{Text: msgChooseHabit, Keyboard: kb(HabitListKeyboard(habits)), TargetState: target}, nil
	}
}

func (c *Controller) handleDeletePick(ctx context.Context, s *Session, action Action) (UIUpdate, error) {
	id, ok := parseHabitAction(action)
	if !ok {
		return UIUpdate{TargetState: s.State}, nil
	}
	_, err := callWithAuth(ctx, c, s, func(token string) (struct{}, error) {
		return struct{}{}, c.api.DeleteHabit(ctx, token, id)
	})
	if err != nil {
		return UIUpdate{}, err
	}
	s.State = StateUpdateHabitsMenu
	return UIUpdate{Text: "Привычка удалена.", Keyboard: kb(UpdateHabitsKeyboard()), TargetState: s.State}, nil
}

func (c *Controller) handleChangePick(_ context.Context, s *Session, action Action) (UIUpdate, error) {
	id, ok := parseHabitAction(action)
	if !ok {
		return UIUpdate{TargetState: s.State}, nil
	}
	s.EditHabitID = id
	s.State = StateHabitsChange
	return UIUpdate{Text: "Что изменить?", Keyboard: kb(FieldPickerKeyboard()), TargetState: s.State}, nil
}

func (c *Controller) promptFieldValue(field Action, prompt string) handlerFunc {
	return func(_ context.Context, s *Session, _ Action) (UIUpdate, error) {
		s.EditField = field
		s.State = StateChangeField
		return UIUpdate{Text: prompt, Keyboard: kb(BackOnlyKeyboard()), TargetState: s.State}, nil
	}
}

func (c *Controller) handleFieldValueInput(ctx context.Context, s *Session, action Action) (UIUpdate, error) {
	value := strings.TrimSpace(string(action))
	var req UpdateHabitRequest
	switch s.EditField {
	case ActionFieldName:
		req.Name = &value
	case ActionFieldDescription:
		req.Description = &value
	case ActionFieldTargetDays:
		days, err := strconv.Atoi(value)
		if err != nil || days <= 0 {
			days = defaultTargetDays
		}
		req.TargetDays = &days
	default:
		return UIUpdate{TargetState: s.State}, nil
	}

	habitID := s.EditHabitID
	_, err := callWithAuth(ctx, c, s, func(token string) (Habit, error) {
		return c.api.UpdateHabit(ctx, token, habitID, req)
	})
	if err != nil {
		return UIUpdate{}, err
	}
	s.EditHabitID = 0
	s.EditField = ""
	s.State = StateUpdateHabitsMenu
	return UIUpdate{Text: "Привычка обновлена.", Keyboard: kb(UpdateHabitsKeyboard()), TargetState: s.State}, nil
}

func (c *Controller) handleTrackPick(track bool) handlerFunc {
	return func(ctx context.Context, s *Session, action Action) (UIUpdate, error) {
		id, ok := parseHabitAction(action)
		if !ok {
			return UIUpdate{TargetState: s.State}, nil
		}
		req := UpdateHabitRequest{IsTracked: &track}
		_, err := callWithAuth(ctx, c, s, func(token string) (Habit, error) {
			return c.api.UpdateHabit(ctx, token, id, req)
		})
		if err != nil {
			return UIUpdate{}, err
		}
		text := "Отслеживание включено."
		if !track {
			text = "Отслеживание остановлено."
		}
		s.State = StateTrackHabitMenu
		return UIUpdate{Text: text, Keyboard: kb(TrackMenuKeyboard()), TargetState: s.State}, nil
	}
}

func (c *Controller) handleLogPick(completed bool) handlerFunc {
	return func(ctx context.Context, s *Session, action Action) (UIUpdate, error) {
		id, ok := parseHabitAction(action)
		if !ok {
			return UIUpdate{TargetState: s.State}, nil
		}
		req := CreateLogRequest{LogDate: c.now().UTC(), Completed: completed}
		_, err := callWithAuth(ctx, c, s, func(token string) (struct{}, error) {
			return struct{}{}, c.api.CreateLog(ctx, token, id, req)
		})
		if err != nil {
			return UIUpdate{}, err
		}
		text := "Выполнение отмечено! Так держать! 💪"
		if !completed {
			text = "Отмечено как не выполнено. Завтра получится!"
		}
		s.State = StateTrackHabitMenu
		return UIUpdate{Text: text, Keyboard: kb(TrackMenuKeyboard()), TargetState: s.State}, nil
	}
}

func (c *Controller) handleStatistics(ctx context.Context, s *Session, _ Action) (UIUpdate, error) {
	habits, err := callWithAuth(ctx, c, s, func(token string) ([]Habit, error) {
		return c.api.ListHabits(ctx, token)
	})
	if err != nil {
		return UIUpdate{}, err
	}
	s.State = StateStatistics
	if len(habits) == 0 {
		return UIUpdate{Text: "Привычек пока нет. Добавьте первую!", Keyboard: kb(BackOnlyKeyboard()), TargetState: s.State}, nil
	}
	var b strings.Builder
	b.WriteString("📊 Ваша статистика:\n")
	for _, h := range habits {
		fmt.Fprintf(&b, "• %s: серия %d, всего %d из %d\n", h.Name, h.CurrentStreak, h.TotalCompleted, h.TargetDays)
	}
	return UIUpdate{Text: b.String(), Keyboard: kb(BackOnlyKeyboard()), TargetState: s.State}, nil
}

// callWithAuth runs a collaborator call with the session's access token. If
// the call comes back unauthorized it re-authenticates with the stored
// credentials and retries the same call exactly once; a second failure is
// surfaced as-is and the caller leaves the session state untouched.
func callWithAuth[T any](ctx context.Context, c *Controller, s *Session, call func(accessToken string) (T, error)) (T, error) {
	out, err := call(s.AccessToken)
	if err == nil || !errors.Is(err, errs.ErrUnauthorized) {
		return out, err
	}

	pair, authErr := c.api.Authenticate(ctx, sessionCredentials(s))
	if authErr != nil {
		var zero T
		return zero, fmt.Errorf("re-authenticate: %w", authErr)
	}
	s.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		s.RefreshToken = pair.RefreshToken
	}
	return call(s.AccessToken)
}

// sessionCredentials derives API credentials from the chat identity: the
// chat id doubles as the account secret.
func sessionCredentials(s *Session) Credentials {
	return Credentials{
		Username: s.Username,
		Password: strconv.FormatInt(s.ChatID, 10),
		ChatID:   s.ChatID,
	}
}

func kb(k Keyboard) *Keyboard { return &k }
