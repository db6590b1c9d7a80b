package sqlinline

// QListDueConfigs lists every due autopilot config for one scheduler tick.
// Double pickup is prevented elsewhere: the tick task carries a fixed asynq
// task id so ticks never overlap, and the scheduler advances
// next_scheduled_at at claim time so a config being processed stops matching.
const QListDueConfigs = `--sql 7c2f1d84-93aa-4f6e-b1c0-2f8d0f6a9e11
select id, store_id, cadence_per_week, platforms, mode, locale,
       is_active, is_approved, next_scheduled_at, last_generated_at,
       videos_generated, pool_cycles, created_at, updated_at
from autopilot_configs
where is_active = true
  and is_approved = true
  and next_scheduled_at <= $1
order by next_scheduled_at asc;
`

const QAdvanceSchedule = `--sql 3e9ab7c5-1d24-4c3b-8f6e-a0b19c4d72f8
update autopilot_configs
set next_scheduled_at = $2,
    last_generated_at = $3,
    updated_at = now()
where id = $1;
`

const QIncrementStats = `--sql b45d20ef-6a81-47d9-9c35-eb7f81a2c604
update autopilot_configs
set videos_generated = videos_generated + 1,
    pool_cycles = pool_cycles + case when $2 then 1 else 0 end,
    updated_at = now()
where id = $1;
`

const QListConfigs = `--sql 6b3c91fa-48e2-4d07-a6b9-c15e72d840b3
select id, store_id, cadence_per_week, platforms, mode, locale,
       is_active, is_approved, next_scheduled_at, last_generated_at,
       videos_generated, pool_cycles, created_at, updated_at
from autopilot_configs
order by created_at asc;
`

const QGetConfig = `--sql 2d70e8b6-9c41-4f3a-85d2-41a9c6e0f7b2
select id, store_id, cadence_per_week, platforms, mode, locale,
       is_active, is_approved, next_scheduled_at, last_generated_at,
       videos_generated, pool_cycles, created_at, updated_at
from autopilot_configs
where id = $1;
`
