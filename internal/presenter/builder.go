package presenter

import (
	"github.com/rsl-live/arena-overlay/internal/models"
	"github.com/rsl-live/arena-overlay/internal/reconcile"
	"github.com/rsl-live/arena-overlay/internal/selection"
	"github.com/rsl-live/arena-overlay/internal/snapshot"
)

// NoRobotSelected is the designated placeholder bot name. Absent data
// degrades to this payload instead of an omitted update.
const NoRobotSelected = "No Robot Selected"

// MatchQueueLimit caps the queued matches a match-queue payload carries.
const MatchQueueLimit = 10

// RobotView is the normalized robot shape every scene payload uses.
type RobotView struct {
	BotName     string `json:"bot_name"`
	TeamName    string `json:"team_name"`
	Elo         *int   `json:"elo,omitempty"`
	Rank        *int   `json:"mrca_rank,omitempty"`
	WeightClass string `json:"weight_class"`
	ImageURL    string `json:"image_url,omitempty"`
}

type NamesPayload struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type PairPayload struct {
	Left  RobotView `json:"left"`
	Right RobotView `json:"right"`
}

type TournamentInfo struct {
	TournamentName string `json:"tournament_name"`
	WeightClass    string `json:"weight_class"`
}

type FightCardsPayload struct {
	Left       RobotView      `json:"left"`
	Right      RobotView      `json:"right"`
	Tournament TournamentInfo `json:"tournament"`
}

type RSLPayload struct {
	Name           string `json:"name"`
	EventOrganizer string `json:"event_organizer,omitempty"`
	Location       string `json:"location,omitempty"`
}

type QueueSlot struct {
	MatchNumber int       `json:"match_number"`
	RedBot      RobotView `json:"red_bot"`
	BlueBot     RobotView `json:"blue_bot"`
	WeightClass string    `json:"weight_class"`
	Completed   bool      `json:"completed,omitempty"`
}

type MatchQueuePayload struct {
	TournamentName string      `json:"tournament_name"`
	Matches        []QueueSlot `json:"matches"`
}

type ScenePayload struct {
	Scene string `json:"scene"`
}

type TimerPayload struct {
	Seconds int  `json:"seconds"`
	Paused  bool `json:"paused"`
}

type ColorPayload struct {
	Color string `json:"color"`
}

type NameColorsPayload struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type StatusPayload struct {
	Message string `json:"message"`
}

// Builder translates reconciled selection state plus snapshot lookups into
// presentation commands. It never fails: anything unresolved becomes the
// NoRobotSelected placeholder view.
type Builder struct {
	store *snapshot.Store
}

func NewBuilder(store *snapshot.Store) *Builder {
	return &Builder{store: store}
}

func placeholderView() RobotView {
	return RobotView{BotName: NoRobotSelected, WeightClass: models.DefaultWeightClass}
}

// ViewByName resolves a competitor name into a RobotView scoped to the
// given tournament for image resolution. Reserved placeholder values and
// empty names yield the NoRobotSelected view; names missing from the
// roster keep the name with an unknown team.
func (b *Builder) ViewByName(name string, tournamentID int) RobotView {
	if name == "" || name == selection.PlaceholderLeft || name == selection.PlaceholderRight {
		return placeholderView()
	}

	robot, ok := b.store.RobotByName(name)
	if !ok {
		return RobotView{BotName: name, TeamName: "Unknown Team", WeightClass: models.DefaultWeightClass}
	}
	return b.view(robot, tournamentID)
}

// ViewByID resolves a robot id, falling back to the placeholder view.
func (b *Builder) ViewByID(robotID, tournamentID int) RobotView {
	robot, ok := b.store.RobotByID(robotID)
	if !ok {
		return placeholderView()
	}
	return b.view(robot, tournamentID)
}

func (b *Builder) view(robot models.Robot, tournamentID int) RobotView {
	weightClass := robot.WeightClass
	if weightClass == "" {
		weightClass = models.DefaultWeightClass
	}
	elo := robot.Elo
	return RobotView{
		BotName:     robot.BotName,
		TeamName:    robot.TeamName,
		Elo:         &elo,
		Rank:        robot.Rank,
		WeightClass: weightClass,
		ImageURL:    b.store.ImageURL(robot.ID, tournamentID),
	}
}

// Names carries the raw name boxes; placeholders render as empty strings.
func (b *Builder) Names(left, right string) Command {
	payload := NamesPayload{Left: left, Right: right}
	if left == selection.PlaceholderLeft {
		payload.Left = ""
	}
	if right == selection.PlaceholderRight {
		payload.Right = ""
	}
	return NewCommand(OpNames, payload)
}

func (b *Builder) MatchScene(left, right RobotView) Command {
	return NewCommand(OpMatchScene, PairPayload{Left: left, Right: right})
}

func (b *Builder) FightCards(left, right RobotView, tournamentName string) Command {
	return NewCommand(OpFightCards, FightCardsPayload{
		Left:  left,
		Right: right,
		Tournament: TournamentInfo{
			TournamentName: tournamentName,
			WeightClass:    left.WeightClass,
		},
	})
}

func (b *Builder) Judges(left, right RobotView) Command {
	return NewCommand(OpJudges, PairPayload{Left: left, Right: right})
}

func (b *Builder) RSL(tournamentName string) Command {
	payload := RSLPayload{Name: tournamentName}
	if tournament, ok := b.store.TournamentByName(tournamentName); ok {
		payload.EventOrganizer = tournament.EventOrganizer
		payload.Location = tournament.Location
	}
	return NewCommand(OpRSL, payload)
}

func (b *Builder) WinnerRed(view RobotView) Command {
	return NewCommand(OpWinnerRed, view)
}

func (b *Builder) WinnerBlue(view RobotView) Command {
	return NewCommand(OpWinnerBlue, view)
}

// MatchQueue renders the ordered display list, at most MatchQueueLimit
// slots. The retained completed entry, when present, arrives as the first
// display entry and therefore occupies slot 0.
func (b *Builder) MatchQueue(tournamentName string, tournamentID int, entries []reconcile.Entry) Command {
	if len(entries) > MatchQueueLimit {
		entries = entries[:MatchQueueLimit]
	}

	slots := make([]QueueSlot, 0, len(entries))
	for _, e := range entries {
		red := b.ViewByID(e.Match.Robot1ID, tournamentID)
		blue := b.ViewByID(e.Match.Robot2ID, tournamentID)
		slots = append(slots, QueueSlot{
			MatchNumber: e.Match.ID,
			RedBot:      red,
			BlueBot:     blue,
			WeightClass: red.WeightClass,
			Completed:   e.Completed,
		})
	}
	return NewCommand(OpMatchQueue, MatchQueuePayload{
		TournamentName: tournamentName,
		Matches:        slots,
	})
}

func (b *Builder) SwitchScene(scene string) Command {
	return NewCommand(OpSwitchScene, ScenePayload{Scene: scene})
}

func (b *Builder) Timer(seconds int, paused bool) Command {
	return NewCommand(OpTimer, TimerPayload{Seconds: seconds, Paused: paused})
}

func (b *Builder) BackgroundColor(color string) Command {
	return NewCommand(OpBackgroundColor, ColorPayload{Color: color})
}

func (b *Builder) NameColors(left, right string) Command {
	return NewCommand(OpNameColors, NameColorsPayload{Left: left, Right: right})
}

func (b *Builder) Status(message string) Command {
	return NewCommand(OpStatus, StatusPayload{Message: message})
}
