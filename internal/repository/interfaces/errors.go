package interfaces

import "errors"

var (
	// ErrCharacterNotFound 角色不存在
	ErrCharacterNotFound = errors.New("character not found")
	// ErrRoomNotFound 房间不存在
	ErrRoomNotFound = errors.New("dungeon room not found")
	// ErrRoomMemberNotFound 房间成员不存在
	ErrRoomMemberNotFound = errors.New("room member not found")
	// ErrDungeonTemplateNotFound 秘境模板不存在
	ErrDungeonTemplateNotFound = errors.New("dungeon template not found")
	// ErrEncounterNotFound 关卡遭遇配置不存在
	ErrEncounterNotFound = errors.New("stage encounter not found")
	// ErrMonsterNotFound 怪物配置不存在
	ErrMonsterNotFound = errors.New("monster not found")
	// ErrDungeonRecordNotFound 开荒记录不存在
	ErrDungeonRecordNotFound = errors.New("dungeon record not found")
	// ErrBattleReportNotFound 战报不存在
	ErrBattleReportNotFound = errors.New("battle report not found")
)
