package types

// snapshot:
//   draft_id: number
//   draft_public_id: string
//   name: string
//   connected: string[] // "host" first
//   started: boolean
//   first_turn: "host" | "guest"
//   current_turn: "host" | "guest"
//   pick_number: number // committed picks so far
//   picks_per_player: number
//   completed: boolean
//   picks: Pick[] // pick_number asc
//   constraint: Constraint | null
//   constraint_role: string
//   only_eligible: boolean
//   previews: { [role]: { player_id, player_name } }
//   rerolls: { host: number, guest: number } // remaining budget
//
// Constraint:
//   stage: string // last resolved stage
//   options: Option[] // mutually exclusive parallel options
//
// Option:
//   era_label: "1990-1999" etc
//   era_start, era_end: number
//   team: { id, name, abbreviation, logo_url } | null
//   letter: "A".."Z"
//   letter_part: "first" | "last" | "either"
//   player: { id, name, image_url } | null
//
// Pick:
//   pick_number: number
//   role: "host" | "guest"
//   player_id: number
//   player_name: string
//   player_image_url: string
//   constraint_team: string
//   constraint_year: string
