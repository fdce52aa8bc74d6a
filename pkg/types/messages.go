package types

// Client -> Server
// start: {}
//
// roll: {}
//
// force_reroll: {} // host only, never spends budget
//
// select_preview (transient):
//   player_id: number // 0 clears
//
// make_pick:
//   player_id: number
//   constraint_team: string // optional, label only
//   constraint_year: string // optional, label only
//
// set_setting:
//   setting: "only_eligible"
//   value: boolean
//
// undo_last_pick: {} // host only
//
// rename:
//   name: string // 1-120 chars

// Server -> Client
// snapshot: full state, sent on connect, start and undo (see snapshot.go)
//
// roll_started:
//   stage: "era" | "franchise" | "letter" | "player"
//   by_role: "host" | "guest"
//
// roll_stage_result:
//   stage: string
//   by_role: string
//   constraint: Constraint // accumulated so far
//
// roll_result:
//   by_role: string
//   forced: boolean
//   constraint: Constraint
//
// roll_error:
//   stage: string
//   message: string // prior constraint stays in force
//
// pick_committed:
//   pick: Pick
//   next_turn: "host" | "guest"
//   completed: boolean
//
// preview_updated:
//   role: string
//   preview: { player_id, player_name } | null
//
// setting_updated:
//   setting: "only_eligible" | "name"
//   value: boolean | string
//
// connection_update:
//   connected: string[] // roles with a live socket
//
// error:
//   message: string
