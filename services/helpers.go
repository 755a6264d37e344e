package services

import (
	"errors"

	"github.com/Dosada05/debate-system/repositories"
)

// Маппинг ошибок репозиториев в сервисные sentinel-ошибки, чтобы HTTP-слой
// матчился только по ошибкам пакета services.

func mapEventRepoError(err error) error {
	if errors.Is(err, repositories.ErrEventNotFound) {
		return ErrEventNotFound
	}
	return err
}

func mapTeamRepoError(err error) error {
	if errors.Is(err, repositories.ErrTeamNotFound) {
		return ErrTeamNotFound
	}
	return err
}

func mapUserRepoError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return ErrUserNotFound
	}
	return err
}

func mapRoomRepoError(err error) error {
	if errors.Is(err, repositories.ErrRoomNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func mapMatchRepoError(err error) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

func mapScoreRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrScoreNotFound):
		return ErrScoreNotFound
	case errors.Is(err, repositories.ErrScoreSubmitted):
		return ErrScoreAlreadySubmitted
	}
	return err
}

func mapAssignmentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrAssignmentNotFound):
		return ErrAssignmentNotFound
	case errors.Is(err, repositories.ErrAssignmentDuplicate):
		return ErrJudgeAlreadyAssigned
	}
	return err
}

func mapAdjustmentRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrVoteLogNotFound),
		errors.Is(err, repositories.ErrWinLogNotFound),
		errors.Is(err, repositories.ErrScoreDiffLogNotFound):
		return ErrLogNotFound
	}
	return err
}
