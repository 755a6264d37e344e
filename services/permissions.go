package services

import "github.com/Dosada05/debate-system/models"

// Action — именованная операция ядра для проверки полномочий. Проверка
// собрана в одном месте, чтобы admin-bypass не расползался по сервисам
// ad-hoc сравнениями ролей.
type Action string

const (
	ActionCreateMatch       Action = "match:create"
	ActionAdvanceMatch      Action = "match:advance"
	ActionManageAssignments Action = "assignments:manage"
	ActionWriteScores       Action = "scores:write"
	ActionManageByes        Action = "byes:manage"
	ActionAdjustResults     Action = "adjustments:manage"
)

// roleActions перечисляет операции, доступные роли помимо полного
// admin-доступа. Ограничения на конкретный ресурс (привязанный модератор,
// владеющий судья) проверяются дополнительно в Can.
var roleActions = map[models.UserRole]map[Action]bool{
	models.RoleModerator: {
		ActionAdvanceMatch: true,
	},
	models.RoleJudge: {
		ActionWriteScores: true,
	},
}

// Can решает, разрешена ли операция актору над ресурсом. resource — матч
// для матчевых операций (может быть nil для операций уровня ивента).
func Can(actor *models.User, action Action, match *models.Match) bool {
	if actor == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if !roleActions[actor.Role][action] {
		return false
	}
	switch action {
	case ActionAdvanceMatch:
		// Только модератор, привязанный к матчу.
		return match != nil && match.ModeratorID != nil && *match.ModeratorID == actor.ID
	default:
		return true
	}
}

// CanModifyScore решает, может ли актор менять конкретную оценку:
// владеющий судья или админ.
func CanModifyScore(actor *models.User, score *models.Score) bool {
	if actor == nil || score == nil {
		return false
	}
	return actor.IsAdmin() || score.JudgeID == actor.ID
}
