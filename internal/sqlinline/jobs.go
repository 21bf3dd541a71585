package sqlinline

const QSelectRecentJobsByStatus = `--sql ed9a6571-c9d0-4737-9ac9-5ec57c26e9e5
select id, status, provider, provider_job_id, settings_json, results_json, error_message, error_kind, created_by, created_at, updated_at
from tryon_jobs
where status = $1::text
order by created_at desc
limit $2::int;
`

const QCountJobsByStatus = `--sql 2a196824-4985-434f-9626-23ab43fd6874
select status, count(*)
from tryon_jobs
group by status;
`
