package sqlinline

const QInsertJob = `--sql 5a8e2c90-17db-4f64-b3a1-9e0c54d7f286
insert into generation_jobs (
    id, owner_id, provider, kind, status,
    product_id, product_title, locale, aspect_ratio,
    external_job_id, chain_stage, image_url, analysis_text, video_prompt,
    submit_intent_at, image_started_at, video_started_at, completed_at,
    error_stage, error_message, result_urls
) values (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9,
    $10, $11, $12, $13, $14,
    $15, $16, $17, $18,
    $19, $20, $21
);
`

const QUpdateJob = `--sql c6f91b47-20ae-4d85-9c03-7b2e6f18d5a9
update generation_jobs
set provider = $2,
    kind = $3,
    status = $4,
    external_job_id = $5,
    chain_stage = $6,
    image_url = $7,
    analysis_text = $8,
    video_prompt = $9,
    submit_intent_at = $10,
    image_started_at = $11,
    video_started_at = $12,
    completed_at = $13,
    error_stage = $14,
    error_message = $15,
    result_urls = $16,
    updated_at = now()
where id = $1;
`

const QGetJob = `--sql 84d3f7a1-b92c-46e0-8d17-f50a9c3e62b4
select id, owner_id, provider, kind, status,
       product_id, product_title, locale, aspect_ratio,
       external_job_id, chain_stage, image_url, analysis_text, video_prompt,
       submit_intent_at, image_started_at, video_started_at, completed_at,
       error_stage, error_message, result_urls, created_at, updated_at
from generation_jobs
where id = $1;
`

// QListProcessingJobs feeds the unconditional chain poll pass.
const QListProcessingJobs = `--sql 9d1e6b32-84f7-4a0c-bd58-30c2a7f9e1d6
select id, owner_id, provider, kind, status,
       product_id, product_title, locale, aspect_ratio,
       external_job_id, chain_stage, image_url, analysis_text, video_prompt,
       submit_intent_at, image_started_at, video_started_at, completed_at,
       error_stage, error_message, result_urls, created_at, updated_at
from generation_jobs
where chain_stage not in ('completed', 'error')
order by created_at asc;
`

// QListOrphanedIntents finds jobs whose submit intent was never confirmed
// with an external job id before the cutoff.
const QListOrphanedIntents = `--sql f0a84c17-52d9-48be-97e3-6d4b1f28c0a5
select id, owner_id, provider, kind, status,
       product_id, product_title, locale, aspect_ratio,
       external_job_id, chain_stage, image_url, analysis_text, video_prompt,
       submit_intent_at, image_started_at, video_started_at, completed_at,
       error_stage, error_message, result_urls, created_at, updated_at
from generation_jobs
where chain_stage not in ('completed', 'error')
  and submit_intent_at is not null
  and submit_intent_at < $1
  and external_job_id = ''
order by submit_intent_at asc;
`
